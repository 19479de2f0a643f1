package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"sigs.k8s.io/yaml"

	"github.com/lyraio/lyra/internal/notifier"
	"github.com/lyraio/lyra/internal/types"
)

// DispatchResult is the printable form of a notifier.Outcome.
type DispatchResult struct {
	EventID             string     `json:"eventId"`
	Kind                string     `json:"kind"`
	State               string     `json:"state"`
	GuardiansNotified   bool       `json:"guardiansNotified"`
	AuthoritiesNotified bool       `json:"authoritiesNotified"`
	GuardianSends       SendCounts `json:"guardianSends"`
	AuthoritySends      SendCounts `json:"authoritySends"`
	Error               string     `json:"error,omitempty"`
}

// SendCounts summarizes one multicast send.
type SendCounts struct {
	Success      int      `json:"success"`
	Failure      int      `json:"failure"`
	FailedTokens []string `json:"failedTokens,omitempty"`
}

func newDispatchResult(out notifier.Outcome) DispatchResult {
	r := DispatchResult{
		EventID:             out.EventID,
		Kind:                string(out.Kind),
		State:               string(out.State),
		GuardiansNotified:   out.Decision.NotifyGuardians,
		AuthoritiesNotified: out.Decision.NotifyAuthorities,
		GuardianSends:       sendCounts(out.GuardianSends),
		AuthoritySends:      sendCounts(out.AuthoritySends),
	}
	if out.Err != nil {
		r.Error = out.Err.Error()
	}
	return r
}

func sendCounts(r types.SendResult) SendCounts {
	return SendCounts{Success: r.SuccessCount, Failure: r.FailureCount, FailedTokens: r.FailedTokens}
}

// outputResult writes the result in the specified format.
func outputResult(w io.Writer, result interface{}, format string) error {
	switch format {
	case "json":
		return outputJSON(w, result)
	case "yaml":
		return outputYAML(w, result)
	default:
		return outputTable(w, result)
	}
}

func outputJSON(w io.Writer, result interface{}) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(result)
}

func outputYAML(w io.Writer, result interface{}) error {
	data, err := yaml.Marshal(result)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

func outputTable(out io.Writer, result interface{}) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	defer w.Flush()

	switch r := result.(type) {
	case DispatchResult:
		return outputDispatchTable(w, r)
	default:
		// Fall back to JSON for unknown types
		return outputJSON(out, result)
	}
}

func outputDispatchTable(w *tabwriter.Writer, r DispatchResult) error {
	fmt.Fprintf(w, "EVENT\t%s\n", r.EventID)
	fmt.Fprintf(w, "KIND\t%s\n", r.Kind)
	fmt.Fprintf(w, "STATE\t%s\n", r.State)
	if r.Error != "" {
		fmt.Fprintf(w, "ERROR\t%s\n", r.Error)
	}

	fmt.Fprintln(w, "\nGROUP\tNOTIFIED\tSUCCESS\tFAILURE")
	fmt.Fprintf(w, "guardians\t%t\t%d\t%d\n", r.GuardiansNotified, r.GuardianSends.Success, r.GuardianSends.Failure)
	fmt.Fprintf(w, "authorities\t%t\t%d\t%d\n", r.AuthoritiesNotified, r.AuthoritySends.Success, r.AuthoritySends.Failure)
	return nil
}
