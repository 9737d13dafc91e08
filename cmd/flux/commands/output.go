package commands

import (
	"io"

	"github.com/spf13/cobra"

	"github.com/wonny/fluxrx/internal/engine"
)

// emit prints the result as a JSON envelope (--json) or through text
func emit(cmd *cobra.Command, rt *runtime, operation string, result interface{}, text func(io.Writer, engine.Envelope)) error {
	env := rt.engine.Wrap(operation, result)
	w := cmd.OutOrStdout()
	if jsonOutput {
		return PrintJSON(w, env)
	}
	text(w, env)
	return nil
}

// sourceLabel describes the active price source for headers
func sourceLabel(rt *runtime) string {
	if source == sourceCSV {
		return pricesPath
	}
	if rt.redis != nil {
		return "postgres (redis cache)"
	}
	return source
}
