package pdf

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jung-kurt/gofpdf"
)

// Generator is an interface so services can be tested without writing files.
type Generator interface {
	GeneratePreAuthForm(data PreAuthFormData) (string, error)
	GenerateDischargeSummary(data DischargeSummaryData) (string, error)
}

type DocumentGenerator struct {
	RootDir  string // file storage root, e.g. "./files"
	FontPath string // path to a TTF, e.g. "assets/fonts/DejaVuSans.ttf"
	fontName string
}

type PreAuthFormData struct {
	LeadID         int
	PatientName    string
	InsurerName    string
	PolicyNumber   string
	SumInsured     string
	HospitalName   string
	RoomType       string
	RaisedAt       time.Time
	ApprovalStatus string
	ApprovedAmount int64
	Filename       string // basename only; generated when empty
}

type DischargeSummaryData struct {
	LeadID         int
	PatientName    string
	HospitalName   string
	RoomType       string
	AdmittedAt     *time.Time
	DischargedAt   time.Time
	ApprovedAmount int64
	Filename       string
}

func NewDocumentGenerator(rootDir, fontPath string) *DocumentGenerator {
	return &DocumentGenerator{
		RootDir:  filepath.Clean(rootDir),
		FontPath: fontPath,
		fontName: "DejaVu",
	}
}

func (g *DocumentGenerator) GeneratePreAuthForm(data PreAuthFormData) (string, error) {
	filename := data.Filename
	if filename == "" {
		filename = fmt.Sprintf("preauth_form_lead_%d.pdf", data.LeadID)
	}
	absPath, err := g.ensureTarget(filename)
	if err != nil {
		return "", err
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(fmt.Sprintf("Pre-Authorization Request - Case %d", data.LeadID), false)
	pdf.SetAuthor("CareBridge", false)
	pdf.SetMargins(20, 20, 20)
	pdf.SetAutoPageBreak(true, 20)

	g.addUTF8Font(pdf)
	pdf.AddPage()

	pdf.SetFont(g.fontName, "B", 18)
	pdf.CellFormat(0, 10, "PRE-AUTHORIZATION REQUEST", "", 1, "C", false, 0, "")

	pdf.SetFont(g.fontName, "", 12)
	sub := fmt.Sprintf("Case CB-%06d  raised  %s", data.LeadID, data.RaisedAt.Format("02.01.2006"))
	pdf.CellFormat(0, 7, sub, "", 1, "C", false, 0, "")
	g.hr(pdf)
	pdf.Ln(3)

	g.sectionTitle(pdf, "Patient")
	g.kvLine(pdf, "Name", data.PatientName)
	g.kvLine(pdf, "Insurer", data.InsurerName)
	g.kvLine(pdf, "Policy no.", data.PolicyNumber)
	g.kvLine(pdf, "Sum insured", data.SumInsured)
	pdf.Ln(2)
	g.hr(pdf)

	g.sectionTitle(pdf, "Requested admission")
	g.kvLine(pdf, "Hospital", data.HospitalName)
	g.kvLine(pdf, "Room type", data.RoomType)
	pdf.Ln(2)
	g.hr(pdf)

	g.sectionTitle(pdf, "Decision")
	g.kvLine(pdf, "Status", data.ApprovalStatus)
	if data.ApprovedAmount > 0 {
		g.kvLine(pdf, "Approved amount", fmt.Sprintf("%d", data.ApprovedAmount))
	}

	pdf.AliasNbPages("")
	pdf.SetFooterFunc(func() {
		pdf.SetY(-15)
		pdf.SetFont(g.fontName, "", 10)
		pdf.CellFormat(0, 10, fmt.Sprintf("Page %d/{nb}", pdf.PageNo()), "", 0, "C", false, 0, "")
	})

	if err := pdf.OutputFileAndClose(absPath); err != nil {
		return "", err
	}
	return "/" + filepath.ToSlash(filepath.Base(absPath)), nil
}

func (g *DocumentGenerator) GenerateDischargeSummary(data DischargeSummaryData) (string, error) {
	filename := data.Filename
	if filename == "" {
		filename = fmt.Sprintf("discharge_summary_lead_%d.pdf", data.LeadID)
	}
	absPath, err := g.ensureTarget(filename)
	if err != nil {
		return "", err
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(fmt.Sprintf("Discharge Summary - Case %d", data.LeadID), false)
	pdf.SetMargins(20, 20, 20)
	g.addUTF8Font(pdf)
	pdf.AddPage()

	pdf.SetFont(g.fontName, "B", 16)
	pdf.CellFormat(0, 10, "DISCHARGE SUMMARY", "", 1, "C", false, 0, "")
	g.hr(pdf)
	pdf.Ln(3)

	g.kvLine(pdf, "Patient", data.PatientName)
	g.kvLine(pdf, "Hospital", data.HospitalName)
	g.kvLine(pdf, "Room type", data.RoomType)
	if data.AdmittedAt != nil {
		g.kvLine(pdf, "Admitted", data.AdmittedAt.Format("02.01.2006"))
	}
	g.kvLine(pdf, "Discharged", data.DischargedAt.Format("02.01.2006"))
	if data.ApprovedAmount > 0 {
		g.kvLine(pdf, "Approved amount", fmt.Sprintf("%d", data.ApprovedAmount))
	}

	if err := pdf.OutputFileAndClose(absPath); err != nil {
		return "", err
	}
	return "/" + filepath.ToSlash(filepath.Base(absPath)), nil
}

// ===== helpers =====

func (g *DocumentGenerator) sectionTitle(pdf *gofpdf.Fpdf, s string) {
	pdf.SetFont(g.fontName, "B", 12)
	pdf.CellFormat(0, 7, s, "", 1, "L", false, 0, "")
	pdf.SetFont(g.fontName, "", 11)
}

func (g *DocumentGenerator) kvLine(pdf *gofpdf.Fpdf, key, val string) {
	pdf.SetFont(g.fontName, "B", 11)
	pdf.CellFormat(45, 6, key+":", "", 0, "L", false, 0, "")
	pdf.SetFont(g.fontName, "", 11)
	pdf.CellFormat(0, 6, val, "", 1, "L", false, 0, "")
}

func (g *DocumentGenerator) hr(pdf *gofpdf.Fpdf) {
	y := pdf.GetY() + 1.5
	pdf.SetLineWidth(0.2)
	pdf.Line(20, y, 190, y)
	pdf.SetY(y + 2)
}

func (g *DocumentGenerator) ensureTarget(filename string) (string, error) {
	if err := os.MkdirAll(g.RootDir, 0o755); err != nil {
		return "", fmt.Errorf("create files dir: %w", err)
	}
	filename = filepath.Base(filename) // never allow path segments
	return filepath.Join(g.RootDir, filename), nil
}

func (g *DocumentGenerator) addUTF8Font(pdf *gofpdf.Fpdf) {
	pdf.AddUTF8Font(g.fontName, "", g.FontPath)
	pdf.AddUTF8Font(g.fontName, "B", g.FontPath)
}
