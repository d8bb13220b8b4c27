package diag

// Reporter is the minimal contract for receiving diagnostics from a phase.
type Reporter interface {
	Report(d Diagnostic)
}

// BagReporter writes into a *Bag.
type BagReporter struct{ Bag *Bag }

func (r BagReporter) Report(d Diagnostic) {
	if r.Bag == nil {
		return
	}
	r.Bag.Add(d)
}

// SourceReporter stamps the producing pass name on every diagnostic.
type SourceReporter struct {
	Source string
	Next   Reporter
}

func (r SourceReporter) Report(d Diagnostic) {
	if r.Next == nil {
		return
	}
	d.Source = r.Source
	r.Next.Report(d)
}

// ReportFunc adapts a function to Reporter.
type ReportFunc func(Diagnostic)

func (f ReportFunc) Report(d Diagnostic) { f(d) }
