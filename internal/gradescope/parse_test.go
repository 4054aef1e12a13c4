package gradescope

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tonimelisma/gradecal/internal/cache"
)

const assignmentsPage = `<!DOCTYPE html>
<html><body>
<table id="assignments-student-table" class="table">
<thead><tr><th>Name</th><th>Status</th><th>Released</th></tr></thead>
<tbody>
<tr role="row">
  <th class="table--primaryLink" role="rowheader">
    <button class="js-submitAssignment" data-assignment-id="1001" type="button">Homework 1</button>
  </th>
  <td class="submissionStatus"><div class="submissionStatus--bullet"></div><div class="submissionStatus--text">No Submission</div></td>
  <td class="sub--dueDate"><div class="submissionTimeChart">
    <div class="progressBar--caption">
      <time class="submissionTimeChart--releaseDate" datetime="2024-01-01 09:00:00 -0800">Jan 01</time>
      <time class="submissionTimeChart--dueDate" datetime="2024-01-08 23:59:00 -0800">Due Jan 08</time>
    </div>
  </div></td>
</tr>
<tr role="row">
  <th class="table--primaryLink" role="rowheader">
    <a href="/courses/42/assignments/1002/submissions/77">Lab 2</a>
  </th>
  <td class="submissionStatus"><div class="submissionStatus--bullet"></div><div class="submissionStatus--text">Submitted</div></td>
  <td><div class="submissionTimeChart"><div class="progressBar--caption">
    <time datetime="2024-01-02 09:00:00 -0800">Jan 02</time>
    <time datetime="2024-01-09 23:59:00 -0800">Due</time>
    <time datetime="2024-01-11 23:59:00 -0800">Late Due</time>
  </div></div></td>
</tr>
<tr role="row">
  <th class="table--primaryLink" role="rowheader"><span>Reading Quiz</span></th>
  <td class="submissionStatus"><div></div><div>No Submission</div></td>
  <td><div><time datetime="2024-01-03 09:00:00 -0800">r</time><time datetime="2024-01-10 12:00:00 +0000">d</time></div></td>
</tr>
<tr role="row">
  <th class="table--primaryLink" role="rowheader"><button data-assignment-id="1004">Past Due</button></th>
  <td class="submissionStatus"><div></div><div>10.0 / 10.0</div></td>
  <td>No due date shown</td>
</tr>
<tr role="row">
  <th class="table--primaryLink" role="rowheader"><button data-assignment-id="1005">Broken</button></th>
  <td><div></div><div>No Submission</div></td>
  <td><div><time datetime="x">r</time><time datetime="not a date">d</time></div></td>
</tr>
</tbody>
</table>
</body></html>`

func TestParseAssignments(t *testing.T) {
	t.Parallel()

	rows, skipped := parseAssignments(strings.NewReader(assignmentsPage), "42")

	assert.Equal(t, 2, skipped)
	require.Len(t, rows, 3)

	pst := time.FixedZone("", -8*60*60)

	hw := rows["42-1001"]
	assert.Equal(t, "Homework 1", hw.Name)
	assert.False(t, hw.Completed)
	assert.Equal(t, "42", hw.CourseID)
	assert.True(t, hw.Due.At.Equal(time.Date(2024, 1, 8, 23, 59, 0, 0, pst)))
	assert.Nil(t, hw.Due.Late)

	lab := rows["42-1002"]
	assert.Equal(t, "Lab 2", lab.Name)
	assert.True(t, lab.Completed)
	require.NotNil(t, lab.Due.Late)
	assert.True(t, lab.Due.Late.Equal(time.Date(2024, 1, 11, 23, 59, 0, 0, pst)))

	quiz, ok := rows[cache.NewKey("42", "reading_quiz")]
	require.True(t, ok, "rows without an ID are keyed by sanitized name")
	assert.Equal(t, "Reading Quiz", quiz.Name)
	assert.True(t, quiz.Due.At.Equal(time.Date(2024, 1, 10, 12, 0, 0, 0, time.UTC)))
}

func TestParseAssignments_NoTable(t *testing.T) {
	t.Parallel()

	rows, skipped := parseAssignments(strings.NewReader(`<html><body><p>Log in</p></body></html>`), "1")
	assert.Empty(t, rows)
	assert.Zero(t, skipped)
}

func TestParseAssignments_RepeatedKeyKeepsFirstRow(t *testing.T) {
	t.Parallel()

	row := func(name, due string) string {
		return `<tr><th><span>` + name + `</span></th><td><div></div><div>No Submission</div></td>` +
			`<td><div><time datetime="2024-01-01 09:00:00 +0000">r</time>` +
			`<time datetime="` + due + `">d</time></div></td></tr>`
	}

	page := `<table id="assignments-student-table"><tbody>` +
		row("HW 1", "2024-02-01 09:00:00 +0000") +
		row("hw-1", "2024-03-01 09:00:00 +0000") +
		row("HW 2", "2024-04-01 09:00:00 +0000") +
		`</tbody></table>`

	rows, skipped := parseAssignments(strings.NewReader(page), "7")

	assert.Equal(t, 1, skipped)
	require.Len(t, rows, 2)

	first := rows[cache.NewKey("7", "hw_1")]
	assert.Equal(t, "HW 1", first.Name)
	assert.True(t, first.Due.At.Equal(time.Date(2024, 2, 1, 9, 0, 0, 0, time.UTC)))
	assert.Contains(t, rows, cache.NewKey("7", "hw_2"))
}

const accountPage = `<!DOCTYPE html>
<html><body>
<div class="courseList">
  <div class="courseList--term">Instructor</div>
  <div class="courseList--coursesForTerm">
    <a class="courseBox" href="/courses/1"><h3 class="courseBox--shortname">TA 101</h3></a>
  </div>
  <div class="courseList--term">Spring 2024</div>
  <div class="courseList--coursesForTerm">
    <a class="courseBox" href="/courses/42"><h3 class="courseBox--shortname"> CS 161 </h3><div>Systems</div></a>
    <a class="courseBox" href="/courses/43"><div>no heading</div></a>
    <button class="courseBox courseBox--add">Add a course</button>
  </div>
</div>
</body></html>`

func TestParseCourses(t *testing.T) {
	t.Parallel()

	courses := parseCourses(strings.NewReader(accountPage))

	assert.Equal(t, cache.Courses{
		"42": {Name: "CS 161", Href: "/courses/42"},
		"43": {Name: unknownCourse, Href: "/courses/43"},
	}, courses)
}

func TestParseCourses_SingleBlock(t *testing.T) {
	t.Parallel()

	page := `<div class="courseList"><div class="courseList--coursesForTerm">
		<a class="courseBox" href="/courses/7"><h3>Only</h3></a></div></div>`

	courses := parseCourses(strings.NewReader(page))
	assert.Equal(t, cache.Courses{"7": {Name: "Only", Href: "/courses/7"}}, courses)
}

func TestParseAuthenticityToken(t *testing.T) {
	t.Parallel()

	tok, ok := parseAuthenticityToken(strings.NewReader(
		`<form action="/login"><input type="hidden" name="authenticity_token" value="csrf123"></form>`))
	assert.True(t, ok)
	assert.Equal(t, "csrf123", tok)

	_, ok = parseAuthenticityToken(strings.NewReader(`<form></form>`))
	assert.False(t, ok)
}
