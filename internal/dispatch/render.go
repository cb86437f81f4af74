package dispatch

import (
	"time"

	"github.com/tablyhq/tably/pkg/escpos"
)

// RenderJob encodes a compiled kitchen job as an ESC/POS byte stream.
func RenderJob(job Job, width int, at time.Time) []byte {
	doc := escpos.NewDocument(width)

	doc.SetAlign(escpos.AlignCenter).
		SetBold(true).
		SetFontSize(escpos.FontDouble).
		TextF("TABLE %d", job.RefNumber).
		SetFontSize(escpos.FontNormal).
		SetBold(false)
	if job.PriceGroupName != "" {
		doc.Text(job.PriceGroupName)
	}
	doc.Text(at.Format("2006-01-02 15:04")).
		SetAlign(escpos.AlignLeft).
		Separator('=')

	for _, section := range job.Sections {
		doc.SetBold(true).Text(section.Header).SetBold(false)
		for _, line := range section.Lines {
			name := line.Name
			if line.IsVoid {
				name = "VOID " + name
			}
			doc.QuantityLine(line.Quantity, name)
			for _, modifier := range line.ModifierNames {
				doc.Indented("+ " + modifier)
			}
			if line.PrintMessage != "" {
				doc.Indented("* " + line.PrintMessage)
			}
		}
		doc.Separator('-')
	}

	doc.FeedLines(3).Cut()
	return doc.Bytes()
}

// RenderCallJob encodes a bill-call job as an ESC/POS byte stream.
func RenderCallJob(job CallJob, width int, at time.Time) []byte {
	doc := escpos.NewDocument(width)

	doc.SetAlign(escpos.AlignCenter).
		SetBold(true).
		SetFontSize(escpos.FontDouble).
		TextF("CALL TABLE %d", job.RefNumber).
		SetFontSize(escpos.FontNormal).
		SetBold(false).
		Text(at.Format("2006-01-02 15:04")).
		SetAlign(escpos.AlignLeft).
		Separator('=')

	for _, line := range job.Lines {
		doc.Text(line.Name)
	}

	doc.FeedLines(3).Cut()
	return doc.Bytes()
}
