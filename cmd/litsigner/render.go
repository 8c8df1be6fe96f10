package main

import (
	"io"
	"sort"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	dto "github.com/prometheus/client_model/go"

	litnode "github.com/erc7824/aa-signers/pkg/lit"
)

func renderSessionSigs(out io.Writer, network string, sigs litnode.SessionSigs) {
	urls := make([]string, 0, len(sigs))
	for url := range sigs {
		urls = append(urls, url)
	}
	sort.Strings(urls)

	t := table.NewWriter()
	t.SetOutputMirror(out)
	t.SetTitle("Session signatures (" + network + ")")
	t.AppendHeader(table.Row{"Node", "Algo", "Derived Via", "Signature"})
	t.AppendSeparator()
	for _, url := range urls {
		sig := sigs[url]
		t.AppendRow(table.Row{url, sig.Algo, sig.DerivedVia, abbreviate(sig.Sig)})
	}
	t.Render()
}

func renderMetrics(out io.Writer, families []*dto.MetricFamily) {
	t := table.NewWriter()
	t.SetOutputMirror(out)
	t.AppendHeader(table.Row{"Metric", "Labels", "Value"})
	t.AppendSeparator()

	for _, family := range families {
		for _, m := range family.GetMetric() {
			if m.GetCounter() == nil {
				continue
			}
			labels := make([]string, 0, len(m.GetLabel()))
			for _, l := range m.GetLabel() {
				labels = append(labels, l.GetName()+"="+l.GetValue())
			}
			t.AppendRow(table.Row{family.GetName(), strings.Join(labels, ","), m.GetCounter().GetValue()})
		}
	}
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, AutoMerge: true},
	})
	t.Render()
}

func abbreviate(s string) string {
	if len(s) <= 20 {
		return s
	}
	return s[:10] + "…" + s[len(s)-8:]
}
