package main

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"sigs.k8s.io/yaml"

	"github.com/sgahlot/signalctx/internal/mcp"
)

// outputResult writes the result in the specified format.
func outputResult(out io.Writer, result interface{}, format string) error {
	switch format {
	case "json":
		return outputJSON(out, result)
	case "yaml":
		return outputYAML(out, result)
	case "table", "":
		return outputTable(out, result)
	default:
		return fmt.Errorf("unknown output format %q: use table, json or yaml", format)
	}
}

func outputJSON(out io.Writer, result interface{}) error {
	encoder := json.NewEncoder(out)
	encoder.SetIndent("", "  ")
	return encoder.Encode(result)
}

func outputYAML(out io.Writer, result interface{}) error {
	data, err := yaml.Marshal(result)
	if err != nil {
		return err
	}
	_, err = out.Write(data)
	return err
}

func outputTable(out io.Writer, result interface{}) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	defer w.Flush()

	switch r := result.(type) {
	case mcp.LogContextResult:
		return outputContextTable(w, r)
	case ObjectsResult:
		return outputObjectsTable(w, r)
	case mcp.FindRelatedResult:
		return outputRelatedTable(w, r)
	case mcp.LinksResult:
		return outputLinksTable(w, r)
	case ToolsResult:
		return outputToolsTable(w, r)
	case CallResult:
		return outputCallTable(w, r)
	default:
		// Fall back to JSON for unknown types
		return outputJSON(out, result)
	}
}

func outputContextTable(w *tabwriter.Writer, r mcp.LogContextResult) error {
	if r.Context == "" {
		fmt.Fprintln(w, "No log context found.")
	} else {
		// The block is printed verbatim; tabs inside messages must not be aligned.
		fmt.Fprint(w, strings.ReplaceAll(r.Context, "\t", " "))
		if !strings.HasSuffix(r.Context, "\n") {
			fmt.Fprintln(w)
		}
	}
	fmt.Fprintln(w)

	ids := make([]string, 0, len(r.Identities))
	for _, id := range r.Identities {
		ids = append(ids, id.Key())
	}
	fmt.Fprintf(w, "IDENTITIES:\t%s\n", strings.Join(ids, ", "))
	fmt.Fprintf(w, "WINDOW:\t%s .. %s\n", r.Window.Start.Format(time.RFC3339), r.Window.End.Format(time.RFC3339))
	fmt.Fprintf(w, "SHOWN:\t%d\n", len(r.Entries))
	fmt.Fprintf(w, "DROPPED:\t%d\n", r.Dropped)

	if len(r.PodIssues) > 0 {
		fmt.Fprintln(w, "\nPOD ISSUES:")
		fmt.Fprintln(w, "NAMESPACE\tPOD\tREASON")
		for _, issue := range r.PodIssues {
			fmt.Fprintf(w, "%s\t%s\t%s\n", issue.Identity.Namespace, issue.Identity.Name, issue.Reason)
		}
	}

	if len(r.Degraded) > 0 {
		fmt.Fprintln(w, "\nDEGRADED:")
		fmt.Fprintln(w, "IDENTITY\tREASON\tQUERY")
		for _, d := range r.Degraded {
			fmt.Fprintf(w, "%s\t%s\t%s\n", d.Identity.Key(), d.Reason, d.Query)
		}
	}
	return nil
}

func outputObjectsTable(w *tabwriter.Writer, r ObjectsResult) error {
	fmt.Fprintf(w, "QUERY\t%s\n", r.Query)
	if len(r.Goals) > 0 {
		fmt.Fprintf(w, "GOALS\t%s\n", strings.Join(r.Goals, ", "))
	}
	fmt.Fprintf(w, "TOTAL\t%d\n\n", r.Total)

	for i, obj := range r.Objects {
		data, err := json.Marshal(obj)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%d\t%s\n", i+1, data)
	}
	return nil
}

func outputRelatedTable(w *tabwriter.Writer, r mcp.FindRelatedResult) error {
	fmt.Fprintf(w, "START\t%s\n", r.Start)
	fmt.Fprintf(w, "DEPTH\t%d\n\n", r.Depth)
	if r.Graph == nil || len(r.Graph.Nodes) == 0 {
		fmt.Fprintln(w, "No related classes found.")
		return nil
	}

	fmt.Fprintln(w, "CLASS\tCOUNT\tQUERY")
	for _, n := range r.Graph.Nodes {
		if len(n.Queries) == 0 {
			fmt.Fprintf(w, "%s\t%d\t-\n", n.Class, n.Count)
			continue
		}
		for _, q := range n.Queries {
			fmt.Fprintf(w, "%s\t%d\t%s\n", n.Class, q.Count, q.Query)
		}
	}
	return nil
}

func outputLinksTable(w *tabwriter.Writer, r mcp.LinksResult) error {
	if r.ConsoleURL != "" {
		fmt.Fprintf(w, "CONSOLE:\t%s\n", r.ConsoleURL)
	}
	if r.TraceURL != "" {
		fmt.Fprintf(w, "TRACE:\t%s\n", r.TraceURL)
	}
	return nil
}

func outputToolsTable(w *tabwriter.Writer, r ToolsResult) error {
	fmt.Fprintln(w, "NAME\tREQUIRED\tDESCRIPTION")
	for _, t := range r.Tools {
		fmt.Fprintf(w, "%s\t%s\t%s\n", t.Name, strings.Join(requiredArgs(t.InputSchema), ","), firstLine(t.Description))
	}
	return nil
}

func outputCallTable(w *tabwriter.Writer, r CallResult) error {
	if s, ok := r.Result.(string); ok {
		fmt.Fprintln(w, s)
		return nil
	}
	data, err := json.MarshalIndent(r.Result, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(w, string(data))
	return nil
}

// requiredArgs reads the "required" list of a JSON schema, sorted.
func requiredArgs(schema map[string]interface{}) []string {
	var out []string
	switch req := schema["required"].(type) {
	case []string:
		out = append(out, req...)
	case []interface{}:
		for _, r := range req {
			if s, ok := r.(string); ok {
				out = append(out, s)
			}
		}
	}
	sort.Strings(out)
	return out
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(strings.TrimSpace(s), "\n")
	return line
}
