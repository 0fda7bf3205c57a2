package cliscan

import (
	"github.com/nasmgo/core/internal/collab"
	"github.com/nasmgo/core/internal/debugcontext"
)

// Diagnostics adapts a *debugcontext.DebugContext to collab.Diagnostics,
// carrying source-level debug information through to the line parser's
// diagnostic collaborator.
type Diagnostics struct {
	Ctx *debugcontext.DebugContext
}

func (d Diagnostics) Report(sev collab.Severity, line, column int, message string) {
	loc := d.Ctx.Loc(line, column)
	if sev == collab.SeverityError {
		d.Ctx.Error(loc, message)
		return
	}
	d.Ctx.Warning(loc, message)
}
