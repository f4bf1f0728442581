// Package export renders stored transactions for download.
package export

import (
	"fmt"
	"io"
	"strconv"

	"github.com/Dan9191/spending-insights/internal/models"
	"github.com/beevik/etree"
)

// MaxXMLItems caps how many transactions one XML export contains
const MaxXMLItems = 1000

// WriteXML writes items as a <transactions> document
func WriteXML(w io.Writer, items []models.Transaction) error {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)

	root := doc.CreateElement("transactions")
	root.CreateAttr("count", strconv.Itoa(len(items)))
	for _, t := range items {
		el := root.CreateElement("transaction")
		el.CreateAttr("id", strconv.FormatInt(t.ID, 10))
		el.CreateAttr("date", t.Date)
		el.CreateElement("description").SetText(t.Description)
		el.CreateElement("amount").SetText(t.Amount.StringFixed(2))
		el.CreateElement("category").SetText(t.Category)
	}

	doc.Indent(2)
	if _, err := doc.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write XML: %w", err)
	}
	return nil
}
