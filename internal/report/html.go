package report

import (
	"bufio"
	"crypto/md5"
	"fmt"
	"html"
	"html/template"
	"os"
	"path/filepath"
	"time"

	"wasmut.dev/pkg/wasmut/internal/result"
)

// HTMLReporter renders a static site: one index page listing every source
// file with its score, and one detail page per file with every mutated
// line marked. No syntax highlighter is used (none appears anywhere in
// the retrieved corpus); html/template's own autoescaping plus a small
// per-line CSS class is enough to mark mutated lines without it — see
// DESIGN.md.
type HTMLReporter struct {
	dir      string
	rewriter *PathRewriter
}

func NewHTMLReporter(dir string, rewriter *PathRewriter) *HTMLReporter {
	return &HTMLReporter{dir: dir, rewriter: rewriter}
}

// Report (re)creates dir and writes index.html plus one detail page per
// source file referenced by entries.
func (h *HTMLReporter) Report(entries []result.Entry) error {
	if err := os.RemoveAll(h.dir); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("report: clear output dir: %w", err)
	}
	if err := os.MkdirAll(h.dir, 0o750); err != nil {
		return fmt.Errorf("report: create output dir: %w", err)
	}

	groups := GroupByFile(entries)
	info := generalInfo{GeneratedAt: now()}

	files := make([]indexFile, 0, len(groups))
	for _, g := range groups {
		displayName := h.rewriter.Rewrite(g.File)
		link, err := h.writeDetailPage(g, displayName, info)
		if err != nil {
			link = ""
		}
		files = append(files, indexFile{
			Name:  displayName,
			Link:  link,
			Score: g.Score,
			Class: scoreClass(g.Score.Percent),
		})
	}

	overall := scoreOf(entries)
	idx := indexData{
		Info:    info,
		Files:   files,
		Overall: overall,
		Class:   scoreClass(overall.Percent),
	}

	out, err := os.Create(filepath.Join(h.dir, "index.html"))
	if err != nil {
		return fmt.Errorf("report: create index.html: %w", err)
	}
	defer out.Close()
	return indexTemplate.Execute(out, idx)
}

func (h *HTMLReporter) writeDetailPage(g FileGroup, displayName string, info generalInfo) (string, error) {
	lines, err := renderSourceLines(g.File, g.ByLine())
	if err != nil {
		return "", err
	}

	name := detailFilename(displayName)
	out, err := os.Create(filepath.Join(h.dir, name))
	if err != nil {
		return "", fmt.Errorf("report: create %s: %w", name, err)
	}
	defer out.Close()

	data := detailData{Info: info, File: displayName, Lines: lines}
	if err := detailTemplate.Execute(out, data); err != nil {
		return "", fmt.Errorf("report: render %s: %w", name, err)
	}
	return name, nil
}

func detailFilename(displayName string) string {
	base := filepath.Base(displayName)
	sum := md5.Sum([]byte(displayName))
	return fmt.Sprintf("%s-%x.html", base, sum)
}

func scoreClass(percent float64) string {
	switch {
	case percent > 75.0:
		return "score-good"
	case percent > 50.0:
		return "score-warn"
	default:
		return "score-bad"
	}
}

type sourceLineView struct {
	Number  int
	Code    template.HTML
	Class   string
	Mutants []mutantView
}

type mutantView struct {
	Outcome string
	Text    string
}

func renderSourceLines(file string, byLine map[int][]result.Entry) ([]sourceLineView, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, fmt.Errorf("report: open %s: %w", file, err)
	}
	defer f.Close()

	var out []sourceLineView
	scanner := bufio.NewScanner(f)
	n := 0
	for scanner.Scan() {
		n++
		lv := sourceLineView{Number: n, Code: template.HTML(html.EscapeString(scanner.Text())), Class: "line-clean"}
		if entries, ok := byLine[n]; ok {
			lv.Class = lineClass(entries)
			for _, e := range entries {
				lv.Mutants = append(lv.Mutants, mutantView{Outcome: string(e.Outcome), Text: e.Candidate.Description})
			}
		}
		out = append(out, lv)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("report: scan %s: %w", file, err)
	}
	return out, nil
}

// lineClass classifies a line: any surviving (Alive) mutant makes it
// dangerous regardless of how many others were killed; otherwise a line
// where everything present was Killed is clean, and anything else
// (Timeout/Error mixed in) is a warning.
func lineClass(entries []result.Entry) string {
	anyAlive := false
	allKilled := true
	for _, e := range entries {
		if e.Outcome == result.Alive {
			anyAlive = true
		}
		if e.Outcome != result.Killed {
			allKilled = false
		}
	}
	switch {
	case anyAlive:
		return "line-danger"
	case allKilled:
		return "line-good"
	default:
		return "line-warn"
	}
}

type generalInfo struct {
	GeneratedAt string
}

func now() string {
	return time.Now().Format("2006-01-02 15:04:05")
}

type indexFile struct {
	Name  string
	Link  string
	Score result.Score
	Class string
}

type indexData struct {
	Info    generalInfo
	Files   []indexFile
	Overall result.Score
	Class   string
}

type detailData struct {
	Info  generalInfo
	File  string
	Lines []sourceLineView
}

const baseCSS = `
body { font-family: -apple-system, sans-serif; margin: 2rem; color: #222; }
table { border-collapse: collapse; width: 100%; }
td, th { padding: 0.3rem 0.6rem; text-align: left; border-bottom: 1px solid #ddd; }
.score-good { color: #1a7f37; font-weight: bold; }
.score-warn { color: #9a6700; font-weight: bold; }
.score-bad { color: #cf222e; font-weight: bold; }
.source { font-family: ui-monospace, monospace; white-space: pre; }
.line-clean { }
.line-good { background: #e6ffec; }
.line-warn { background: #fff8c5; }
.line-danger { background: #ffebe9; }
.lineno { color: #999; display: inline-block; width: 3rem; text-align: right; margin-right: 1rem; }
`

var indexTemplate = template.Must(template.New("index").Parse(`<!DOCTYPE html>
<html><head><meta charset="utf-8"><title>wasmut report</title><style>` + baseCSS + `</style></head>
<body>
<h1>wasmut mutation report</h1>
<p>Generated {{.Info.GeneratedAt}}</p>
<p>Overall mutation score: <span class="{{.Class}}">{{printf "%.1f" .Overall.Percent}}%</span>
(killed {{.Overall.Killed}}, alive {{.Overall.Alive}}, timeout {{.Overall.Timeout}}, error {{.Overall.Error}}, skipped {{.Overall.Skipped}})</p>
<table>
<tr><th>File</th><th>Score</th><th>Killed</th><th>Alive</th><th>Timeout</th><th>Error</th></tr>
{{range .Files}}
<tr>
<td>{{if .Link}}<a href="{{.Link}}">{{.Name}}</a>{{else}}{{.Name}}{{end}}</td>
<td class="{{.Class}}">{{printf "%.1f" .Score.Percent}}%</td>
<td>{{.Score.Killed}}</td><td>{{.Score.Alive}}</td><td>{{.Score.Timeout}}</td><td>{{.Score.Error}}</td>
</tr>
{{end}}
</table>
</body></html>
`))

var detailTemplate = template.Must(template.New("detail").Parse(`<!DOCTYPE html>
<html><head><meta charset="utf-8"><title>{{.File}}</title><style>` + baseCSS + `</style></head>
<body>
<h1>{{.File}}</h1>
<p>Generated {{.Info.GeneratedAt}} &middot; <a href="index.html">back to index</a></p>
<div class="source">
{{range .Lines}}<div class="{{.Class}}"><span class="lineno">{{.Number}}</span>{{.Code}}{{range .Mutants}} <span title="{{.Text}}">[{{.Outcome}}]</span>{{end}}</div>
{{end}}</div>
</body></html>
`))
