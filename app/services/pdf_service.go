// Package services provides external service integrations and technical concerns like notifications and tokens
package services

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/fatoora-io/fatoora/models"
	"github.com/fatoora-io/fatoora/utils"
	"github.com/go-pdf/fpdf"
)

// PDFService renders invoices to A4 PDF files
type PDFService interface {
	RenderInvoice(invoice *models.Invoice, owner *models.User, qrCodePath string) (string, error)
}

type invoiceLabels struct {
	Invoice     string
	IssueDate   string
	DueDate     string
	From        string
	BillTo      string
	Item        string
	Quantity    string
	UnitPrice   string
	LineTotal   string
	Subtotal    string
	Discount    string
	Tax         string
	GrandTotal  string
	Notes       string
	PaymentLink string
}

var labelsByLanguage = map[string]invoiceLabels{
	models.InvoiceLanguageEnglish: {
		Invoice:     "INVOICE",
		IssueDate:   "Issue date",
		DueDate:     "Due date",
		From:        "From",
		BillTo:      "Bill to",
		Item:        "Item",
		Quantity:    "Qty",
		UnitPrice:   "Unit price",
		LineTotal:   "Total",
		Subtotal:    "Subtotal",
		Discount:    "Discount",
		Tax:         "Tax",
		GrandTotal:  "Grand total",
		Notes:       "Notes",
		PaymentLink: "Pay online",
	},
	models.InvoiceLanguageArabic: {
		Invoice:     "فاتورة",
		IssueDate:   "تاريخ الإصدار",
		DueDate:     "تاريخ الاستحقاق",
		From:        "من",
		BillTo:      "فاتورة إلى",
		Item:        "البند",
		Quantity:    "الكمية",
		UnitPrice:   "سعر الوحدة",
		LineTotal:   "المجموع",
		Subtotal:    "المجموع الفرعي",
		Discount:    "الخصم",
		Tax:         "الضريبة",
		GrandTotal:  "المجموع الكلي",
		Notes:       "ملاحظات",
		PaymentLink: "ادفع عبر الإنترنت",
	},
}

// PDFServiceImpl implements PDFService with go-pdf/fpdf
type PDFServiceImpl struct {
	outputDir    string
	fontPath     string
	fontBoldPath string
}

// NewPDFService creates a new PDF renderer. fontPath and fontBoldPath must
// point to UTF-8 capable TTF files so Arabic invoices render correctly.
func NewPDFService(outputDir, fontPath, fontBoldPath string) (PDFService, error) {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create pdf output dir: %w", err)
	}
	return &PDFServiceImpl{
		outputDir:    outputDir,
		fontPath:     fontPath,
		fontBoldPath: fontBoldPath,
	}, nil
}

const fontFamily = "invoice"

// RenderInvoice draws the invoice and writes it under the output dir. The
// returned path is what gets stored on the invoice row.
func (s *PDFServiceImpl) RenderInvoice(invoice *models.Invoice, owner *models.User, qrCodePath string) (string, error) {
	items, err := invoice.LineItems()
	if err != nil {
		return "", err
	}

	labels, ok := labelsByLanguage[invoice.Language]
	if !ok {
		labels = labelsByLanguage[models.InvoiceLanguageEnglish]
	}
	rtl := invoice.Language == models.InvoiceLanguageArabic

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(15, 15, 15)
	pdf.SetAutoPageBreak(true, 20)

	if s.fontPath != "" {
		pdf.AddUTF8Font(fontFamily, "", s.fontPath)
		bold := s.fontBoldPath
		if bold == "" {
			bold = s.fontPath
		}
		pdf.AddUTF8Font(fontFamily, "B", bold)
	}
	family := fontFamily
	if s.fontPath == "" {
		family = "Helvetica"
	}

	pdf.AddPage()
	if rtl {
		pdf.RTL()
	}

	// Header: title and invoice number
	pdf.SetFont(family, "B", 22)
	pdf.CellFormat(0, 12, labels.Invoice, "", 1, "L", false, 0, "")
	pdf.SetFont(family, "", 11)
	pdf.CellFormat(0, 6, invoice.InvoiceNumber, "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 6, fmt.Sprintf("%s: %s", labels.IssueDate, utils.FormatDate(invoice.IssueDate, invoice.Language)), "", 1, "L", false, 0, "")
	if invoice.DueDate != nil {
		pdf.CellFormat(0, 6, fmt.Sprintf("%s: %s", labels.DueDate, utils.FormatDate(*invoice.DueDate, invoice.Language)), "", 1, "L", false, 0, "")
	}
	pdf.Ln(6)

	// Seller and client blocks
	pdf.SetFont(family, "B", 12)
	pdf.CellFormat(90, 7, labels.From, "", 0, "L", false, 0, "")
	pdf.CellFormat(90, 7, labels.BillTo, "", 1, "L", false, 0, "")
	pdf.SetFont(family, "", 10)

	sellerLines := sellerBlock(owner)
	clientLines := clientBlock(invoice)
	rows := max(len(sellerLines), len(clientLines))
	for i := 0; i < rows; i++ {
		left, right := "", ""
		if i < len(sellerLines) {
			left = sellerLines[i]
		}
		if i < len(clientLines) {
			right = clientLines[i]
		}
		pdf.CellFormat(90, 5, left, "", 0, "L", false, 0, "")
		pdf.CellFormat(90, 5, right, "", 1, "L", false, 0, "")
	}
	pdf.Ln(8)

	// Items table
	pdf.SetFont(family, "B", 10)
	pdf.SetFillColor(235, 235, 235)
	pdf.CellFormat(80, 8, labels.Item, "1", 0, "L", true, 0, "")
	pdf.CellFormat(25, 8, labels.Quantity, "1", 0, "C", true, 0, "")
	pdf.CellFormat(35, 8, labels.UnitPrice, "1", 0, "C", true, 0, "")
	pdf.CellFormat(40, 8, labels.LineTotal, "1", 1, "C", true, 0, "")

	pdf.SetFont(family, "", 10)
	for _, item := range items {
		name := item.Name
		if item.Description != "" {
			name = fmt.Sprintf("%s - %s", item.Name, item.Description)
		}
		pdf.CellFormat(80, 7, name, "1", 0, "L", false, 0, "")
		pdf.CellFormat(25, 7, item.Quantity.String(), "1", 0, "C", false, 0, "")
		pdf.CellFormat(35, 7, utils.FormatAmount(item.UnitPrice, invoice.Currency, invoice.Language), "1", 0, "C", false, 0, "")
		pdf.CellFormat(40, 7, utils.FormatAmount(item.Total, invoice.Currency, invoice.Language), "1", 1, "C", false, 0, "")
	}
	pdf.Ln(4)

	// Totals box
	totalRow := func(label, value string, bold bool) {
		style := ""
		if bold {
			style = "B"
		}
		pdf.SetFont(family, style, 10)
		pdf.CellFormat(105, 7, "", "", 0, "L", false, 0, "")
		pdf.CellFormat(40, 7, label, "", 0, "L", false, 0, "")
		pdf.CellFormat(35, 7, value, "", 1, "R", false, 0, "")
	}
	totalRow(labels.Subtotal, utils.FormatAmount(invoice.Subtotal, invoice.Currency, invoice.Language), false)
	if invoice.DiscountAmount.IsPositive() {
		label := fmt.Sprintf("%s (%s)", labels.Discount, utils.FormatRate(invoice.DiscountRate, invoice.Language))
		totalRow(label, utils.FormatAmount(invoice.DiscountAmount.Neg(), invoice.Currency, invoice.Language), false)
	}
	if invoice.TaxAmount.IsPositive() {
		label := fmt.Sprintf("%s (%s)", labels.Tax, utils.FormatRate(invoice.TaxRate, invoice.Language))
		totalRow(label, utils.FormatAmount(invoice.TaxAmount, invoice.Currency, invoice.Language), false)
	}
	totalRow(labels.GrandTotal, utils.FormatAmount(invoice.Total, invoice.Currency, invoice.Language), true)
	pdf.Ln(6)

	// Notes
	if invoice.Notes != nil && *invoice.Notes != "" {
		pdf.SetFont(family, "B", 10)
		pdf.CellFormat(0, 6, labels.Notes, "", 1, "L", false, 0, "")
		pdf.SetFont(family, "", 10)
		pdf.MultiCell(0, 5, *invoice.Notes, "", "L", false)
		pdf.Ln(4)
	}

	// Payment link with QR code
	if invoice.PaymentLink != nil && *invoice.PaymentLink != "" {
		pdf.SetFont(family, "B", 10)
		pdf.CellFormat(0, 6, labels.PaymentLink, "", 1, "L", false, 0, "")
		pdf.SetFont(family, "", 9)
		pdf.CellFormat(0, 5, *invoice.PaymentLink, "", 1, "L", false, 0, "")
		if qrCodePath != "" {
			pdf.ImageOptions(qrCodePath, pdf.GetX(), pdf.GetY()+2, 30, 30, false,
				fpdf.ImageOptions{ImageType: "PNG"}, 0, "")
		}
	}

	outPath := filepath.Join(s.outputDir, fmt.Sprintf("%s.pdf", invoice.InvoiceNumber))
	if err := pdf.OutputFileAndClose(outPath); err != nil {
		return "", fmt.Errorf("failed to write invoice pdf: %w", err)
	}
	return outPath, nil
}

func sellerBlock(owner *models.User) []string {
	if owner == nil {
		return nil
	}
	lines := []string{owner.DisplayName(), owner.Email}
	if owner.Phone != nil && *owner.Phone != "" {
		lines = append(lines, *owner.Phone)
	}
	if owner.Address != nil && *owner.Address != "" {
		lines = append(lines, *owner.Address)
	}
	return lines
}

func clientBlock(invoice *models.Invoice) []string {
	lines := []string{invoice.ClientName, invoice.ClientEmail}
	if invoice.ClientPhone != nil && *invoice.ClientPhone != "" {
		lines = append(lines, *invoice.ClientPhone)
	}
	if invoice.ClientAddress != nil && *invoice.ClientAddress != "" {
		lines = append(lines, *invoice.ClientAddress)
	}
	return lines
}
