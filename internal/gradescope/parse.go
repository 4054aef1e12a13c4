package gradescope

import (
	"io"
	"regexp"
	"strings"
	"time"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/tonimelisma/gradecal/internal/cache"
)

// dateLayout is the format of datetime attributes on the assignment table.
const dateLayout = "2006-01-02 15:04:05 -0700"

// submittedStatus is the status cell text of a submitted assignment.
const submittedStatus = "Submitted"

const (
	unknownAssignment = "<Unknown Assignment>"
	unknownCourse     = "<Unknown Course>"
)

var assignmentHrefRE = regexp.MustCompile(`/assignments/(\d+)`)

// parseAssignments extracts the rows of a course's assignment table. Rows
// without a due date, that cannot be parsed, or whose key repeats an
// earlier row's are counted in skipped. On a repeated key the first row is
// kept.
func parseAssignments(r io.Reader, courseID string) (rows cache.Snapshot, skipped int) {
	rows = make(cache.Snapshot)

	doc, err := html.Parse(r)
	if err != nil {
		return rows, 0
	}

	table := findFirst(doc, func(n *html.Node) bool {
		return n.DataAtom == atom.Table && attr(n, "id") == "assignments-student-table"
	})
	if table == nil {
		return rows, 0
	}

	body := findFirst(table, func(n *html.Node) bool { return n.DataAtom == atom.Tbody })
	if body == nil {
		return rows, 0
	}

	for _, tr := range elementChildren(body) {
		if tr.DataAtom != atom.Tr {
			continue
		}

		key, a, ok := parseAssignmentRow(tr, courseID)
		if !ok {
			skipped++
			continue
		}

		if _, dup := rows[key]; dup {
			skipped++
			continue
		}

		rows[key] = a
	}

	return rows, skipped
}

// parseAssignmentRow reads one table row: the name cell, the status cell,
// and the progress cell holding release, due, and optional late due times.
func parseAssignmentRow(tr *html.Node, courseID string) (cache.Key, cache.RawAssignment, bool) {
	cells := elementChildren(tr)
	if len(cells) < 3 {
		return "", cache.RawAssignment{}, false
	}

	times := findAll(cells[2], func(n *html.Node) bool {
		return n.DataAtom == atom.Time && attr(n, "datetime") != ""
	})
	if len(times) < 2 {
		return "", cache.RawAssignment{}, false
	}

	due, err := time.Parse(dateLayout, attr(times[1], "datetime"))
	if err != nil {
		return "", cache.RawAssignment{}, false
	}

	dd := cache.NewDueDate(due)

	if len(times) > 2 {
		if late, err := time.Parse(dateLayout, attr(times[2], "datetime")); err == nil {
			dd = dd.WithLate(late)
		}
	}

	name, id := assignmentIdentity(cells[0])
	if id == "" {
		return "", cache.RawAssignment{}, false
	}

	return cache.NewKey(courseID, id), cache.RawAssignment{
		Name:      name,
		Due:       dd,
		Completed: statusText(cells[1]) == submittedStatus,
		CourseID:  courseID,
	}, true
}

// assignmentIdentity returns the display name and ID from the name cell.
// The ID comes from a submit button's data attribute or an assignment link,
// and falls back to the sanitized name.
func assignmentIdentity(cell *html.Node) (name, id string) {
	name = strings.TrimSpace(textContent(cell))

	if children := elementChildren(cell); len(children) > 0 {
		first := children[0]
		name = strings.TrimSpace(textContent(first))

		switch first.DataAtom {
		case atom.Button:
			id = attr(first, "data-assignment-id")
		case atom.A:
			if m := assignmentHrefRE.FindStringSubmatch(attr(first, "href")); m != nil {
				id = m[1]
			}
		}
	}

	if name == "" {
		name = unknownAssignment
	}

	if id == "" {
		id = cache.SanitizeName(name)
	}

	return name, id
}

// statusText returns the text of the status cell's label element.
func statusText(cell *html.Node) string {
	children := elementChildren(cell)
	if len(children) >= 2 {
		return strings.TrimSpace(textContent(children[1]))
	}

	return strings.TrimSpace(textContent(cell))
}

// parseCourses extracts the course boxes of the account page. When the
// page lists more than one course block, the second one is used.
func parseCourses(r io.Reader) cache.Courses {
	courses := make(cache.Courses)

	doc, err := html.Parse(r)
	if err != nil {
		return courses
	}

	list := findFirst(doc, func(n *html.Node) bool {
		return n.DataAtom == atom.Div && hasClass(n, "courseList")
	})
	if list == nil {
		return courses
	}

	var terms []*html.Node

	for _, child := range elementChildren(list) {
		if child.DataAtom == atom.Div && hasClass(child, "courseList--coursesForTerm") {
			terms = append(terms, child)
		}
	}

	if len(terms) == 0 {
		return courses
	}

	block := terms[0]
	if len(terms) > 1 {
		block = terms[1]
	}

	boxes := findAll(block, func(n *html.Node) bool {
		return n.DataAtom == atom.A && hasClass(n, "courseBox")
	})

	for _, box := range boxes {
		href := attr(box, "href")
		id := href[strings.LastIndex(href, "/")+1:]

		if id == "" {
			continue
		}

		name := unknownCourse
		if h3 := findFirst(box, func(n *html.Node) bool { return n.DataAtom == atom.H3 }); h3 != nil {
			if t := strings.TrimSpace(textContent(h3)); t != "" {
				name = t
			}
		}

		courses[id] = cache.Course{Name: name, Href: href}
	}

	return courses
}

// parseAuthenticityToken finds the CSRF token input of the login form.
func parseAuthenticityToken(r io.Reader) (string, bool) {
	doc, err := html.Parse(r)
	if err != nil {
		return "", false
	}

	input := findFirst(doc, func(n *html.Node) bool {
		return n.DataAtom == atom.Input && attr(n, "name") == "authenticity_token"
	})
	if input == nil {
		return "", false
	}

	v := attr(input, "value")

	return v, v != ""
}

// --- node helpers ---

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}

	return ""
}

func hasClass(n *html.Node, class string) bool {
	for _, c := range strings.Fields(attr(n, "class")) {
		if c == class {
			return true
		}
	}

	return false
}

func elementChildren(n *html.Node) []*html.Node {
	var out []*html.Node

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			out = append(out, c)
		}
	}

	return out
}

// findFirst returns the first descendant of n, in document order, matching
// match, or nil.
func findFirst(n *html.Node, match func(*html.Node) bool) *html.Node {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && match(c) {
			return c
		}

		if found := findFirst(c, match); found != nil {
			return found
		}
	}

	return nil
}

// findAll returns every descendant of n matching match, in document order.
func findAll(n *html.Node, match func(*html.Node) bool) []*html.Node {
	var out []*html.Node

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && match(c) {
			out = append(out, c)
		}

		out = append(out, findAll(c, match)...)
	}

	return out
}

func textContent(n *html.Node) string {
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
