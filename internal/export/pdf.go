// Package export renders meeting records and quizzes as PDF documents.
package export

import (
	"bytes"
	"fmt"

	"github.com/go-pdf/fpdf"

	"github.com/meetscribe/backend/internal/models"
)

const (
	pageMargin = 15.0
	lineHeight = 5.5
)

// Meeting renders a full meeting report: title, date, summary, action
// items, sentiment, and the transcript.
func Meeting(record *models.MeetingRecord) ([]byte, error) {
	d := newDoc()

	title := record.Title
	if title == "" {
		title = "Meeting Summary"
	}
	d.heading(title)
	d.subheading(record.Timestamp)

	d.section("Summary")
	if len(record.Summary) == 0 {
		d.paragraph("No summary available.")
	}
	for _, point := range record.Summary {
		d.bullet(point)
	}

	d.section("Action Items")
	if len(record.ActionItems) == 0 {
		d.paragraph("No action items identified.")
	}
	for _, item := range record.ActionItems {
		d.bullet(item)
	}

	d.section("Sentiment")
	d.paragraph(fmt.Sprintf("Overall: %s (positive %.0f%%, negative %.0f%%)",
		record.Sentiment.Overall,
		record.Sentiment.Positive*100,
		record.Sentiment.Negative*100))

	if record.Text != "" {
		d.section("Transcript")
		if len(record.Segments) > 0 {
			for _, seg := range record.Segments {
				d.paragraph(fmt.Sprintf("[%s - %s] %s", clock(seg.Start), clock(seg.End), seg.Text))
			}
		} else {
			d.paragraph(record.Text)
		}
	}

	return d.render()
}

// QuizResult carries a graded question batch for export.
type QuizResult struct {
	Title     string
	Date      string
	Questions []models.QuizQuestion
	States    map[string]*models.QuestionState
	Correct   int
	Score     int // rounded percent
}

// Quiz renders quiz results: date, score, then each question with its
// options, the selected answer, the correct answer when missed, and the
// explanation.
func Quiz(result QuizResult) ([]byte, error) {
	d := newDoc()
	title := result.Title
	if title == "" {
		title = "Quiz Results"
	}
	d.heading(title)
	if result.Date != "" {
		d.subheading("Date: " + result.Date)
	}
	d.paragraph(fmt.Sprintf("Score: %d/%d (%d%%)", result.Correct, len(result.Questions), result.Score))

	for i, q := range result.Questions {
		d.section(fmt.Sprintf("Question %d", i+1))
		d.paragraph(q.Question)
		if q.Type == models.QuestionTypeMultipleChoice {
			for j, opt := range q.Options {
				d.bullet(fmt.Sprintf("%c. %s", 'A'+j, opt))
			}
		} else {
			d.bullet("True")
			d.bullet("False")
		}

		state := result.States[q.ID]
		if state != nil && state.IsAnswered {
			d.paragraph("Your answer: " + state.SelectedAnswer)
			if !state.IsCorrect {
				d.paragraph("Correct answer: " + q.CorrectAnswer)
			}
		} else {
			d.paragraph("Your answer: (not answered)")
			d.paragraph("Correct answer: " + q.CorrectAnswer)
		}
		d.paragraph("Explanation: " + q.Explanation)
	}

	return d.render()
}

// doc wraps an fpdf document with a cp1252 translator so non-ASCII
// transcript text renders with the core fonts instead of as mojibake.
type doc struct {
	pdf *fpdf.Fpdf
	tr  func(string) string
}

func newDoc() *doc {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(pageMargin, pageMargin, pageMargin)
	pdf.SetAutoPageBreak(true, pageMargin)
	pdf.AddPage()
	return &doc{pdf: pdf, tr: pdf.UnicodeTranslatorFromDescriptor("")}
}

func (d *doc) heading(text string) {
	d.pdf.SetFont("Helvetica", "B", 18)
	d.pdf.MultiCell(0, 8, d.tr(text), "", "L", false)
	d.pdf.Ln(2)
}

func (d *doc) subheading(text string) {
	d.pdf.SetFont("Helvetica", "", 10)
	d.pdf.SetTextColor(110, 110, 110)
	d.pdf.MultiCell(0, lineHeight, d.tr(text), "", "L", false)
	d.pdf.SetTextColor(0, 0, 0)
	d.pdf.Ln(2)
}

func (d *doc) section(text string) {
	d.pdf.Ln(3)
	d.pdf.SetFont("Helvetica", "B", 13)
	d.pdf.MultiCell(0, 7, d.tr(text), "", "L", false)
	d.pdf.Ln(1)
}

func (d *doc) paragraph(text string) {
	d.pdf.SetFont("Helvetica", "", 11)
	d.pdf.MultiCell(0, lineHeight, d.tr(text), "", "L", false)
	d.pdf.Ln(1)
}

func (d *doc) bullet(text string) {
	d.pdf.SetFont("Helvetica", "", 11)
	d.pdf.SetX(pageMargin + 4)
	d.pdf.MultiCell(0, lineHeight, d.tr("- "+text), "", "L", false)
}

func (d *doc) render() ([]byte, error) {
	var buf bytes.Buffer
	if err := d.pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func clock(seconds float64) string {
	total := int(seconds)
	return fmt.Sprintf("%d:%02d", total/60, total%60)
}
