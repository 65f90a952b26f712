package driver

import (
	"encoding/json"
	"fmt"

	"fabr/internal/diag"
	"fabr/internal/observ"
	"fabr/internal/source"
)

// timingNote is the JSON carried by the single note of an OBS8001
// diagnostic.
type timingNote struct {
	Kind string `json:"kind"`
	Path string `json:"path,omitempty"`
	observ.Report
}

func timingDiagnostic(root string, report observ.Report) (diag.Diagnostic, error) {
	data, err := json.Marshal(timingNote{Kind: "pipeline", Path: root, Report: report})
	if err != nil {
		return diag.Diagnostic{}, err
	}
	msg := fmt.Sprintf("timings (pipeline): total %.2f ms: %s", report.TotalMS, root)
	return diag.New(diag.SevInfo, diag.ObsTimings, source.Span{}, msg).WithNote(source.Span{}, string(data)), nil
}

// addTimings records the stage timings of root into bag even when the
// bag is already at its limit.
func addTimings(bag *diag.Bag, root string, report observ.Report) {
	d, err := timingDiagnostic(root, report)
	if err != nil || bag.Add(d) {
		return
	}
	extra := diag.NewBag(bag.Len() + 1)
	extra.Add(d)
	bag.Merge(extra)
}
