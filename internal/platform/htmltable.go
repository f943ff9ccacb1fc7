package platform

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"

	"taxman/internal/core"
)

// htmlTable is the first <table> of a rendered report page, flattened
// to text cells. Header rows (those built from <th> cells) are kept
// apart from data rows so layout differences can be normalized.
type htmlTable struct {
	headers [][]string
	rows    [][]string
}

// parseHTMLTable extracts the first table from an HTML document.
func parseHTMLTable(r io.Reader) (*htmlTable, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrFileFormat, err)
	}
	table := findNode(doc, "table")
	if table == nil {
		return nil, fmt.Errorf("%w: no table in document", core.ErrFileFormat)
	}

	out := &htmlTable{}
	var walkRows func(n *html.Node)
	walkRows = func(n *html.Node) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.ElementNode && c.Data == "tr" {
				cells, isHeader := rowCells(c)
				if isHeader && len(out.rows) == 0 {
					out.headers = append(out.headers, cells)
				} else {
					out.rows = append(out.rows, cells)
				}
				continue
			}
			walkRows(c)
		}
	}
	walkRows(table)

	if len(out.headers) == 0 {
		return nil, fmt.Errorf("%w: table has no header row", core.ErrFileFormat)
	}
	return out, nil
}

// columns normalizes the two historical layouts to one header list:
// the early flat single-header table and the later two-level header
// where only the inner level carries the real column names.
func (t *htmlTable) columns() []string {
	header := t.headers[len(t.headers)-1]
	if len(t.headers) == 1 {
		// flat layout predates the rename to "Total"
		out := make([]string, len(header))
		for i, h := range header {
			if h == "Revenue Share" {
				h = "Total"
			}
			out[i] = h
		}
		return out
	}
	return header
}

// dataRows returns rows with every requested column non-empty,
// dropping the summary/footer rows that leave cells blank.
func (t *htmlTable) dataRows(cols map[string]int) [][]string {
	var out [][]string
	for _, r := range t.rows {
		complete := true
		for _, idx := range cols {
			if idx >= len(r) || strings.TrimSpace(r[idx]) == "" {
				complete = false
				break
			}
		}
		if complete {
			out = append(out, r)
		}
	}
	return out
}

func rowCells(tr *html.Node) (cells []string, isHeader bool) {
	for c := tr.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode {
			continue
		}
		if c.Data == "th" {
			isHeader = true
		}
		if c.Data == "th" || c.Data == "td" {
			cells = append(cells, strings.TrimSpace(nodeText(c)))
		}
	}
	return cells, isHeader
}

func findNode(n *html.Node, name string) *html.Node {
	if n.Type == html.ElementNode && n.Data == name {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findNode(c, name); found != nil {
			return found
		}
	}
	return nil
}

func nodeText(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}
