package export

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/go-pdf/fpdf"
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"adboard/internal/telemetry"
)

var validate = validator.New()

// PricingInput is the money side of a contract. Totals are always
// recomputed from these three fields; a client-supplied total is ignored.
type PricingInput struct {
	BasePrice       float64 `json:"base_price" validate:"gte=0"`
	DiscountPercent float64 `json:"discount_percent" validate:"gte=0,lte=100"`
	Tax             float64 `json:"tax" validate:"gte=0"`
}

// Total applies the pricing formula: base minus percentage discount, plus tax.
func (p PricingInput) Total() float64 {
	return ComputeTotal(p.BasePrice, p.DiscountPercent, p.Tax)
}

// ComputeTotal is the single pricing formula used everywhere a total is
// shown or rendered.
func ComputeTotal(base, discountPct, tax float64) float64 {
	return base - base*discountPct/100 + tax
}

// ValidatePricing checks the pricing fields in isolation, for previews.
func ValidatePricing(p PricingInput) error {
	if err := validate.Struct(p); err != nil {
		return fmt.Errorf("datos de precio invalidos: %w", err)
	}
	return nil
}

// ContractFields is everything a rendered contract shows.
type ContractFields struct {
	ClientID      string `json:"client_id" validate:"required"`
	DisplayName   string `json:"display_name" validate:"required"`
	Contact       string `json:"contact"`
	CampaignName  string `json:"campaign_name" validate:"required"`
	MediaVersions int    `json:"media_versions" validate:"gte=0"`
	StartDate     string `json:"start_date" validate:"omitempty,datetime=2006-01-02"`
	EndDate       string `json:"end_date" validate:"omitempty,datetime=2006-01-02"`
	Notes         string `json:"notes"`
	PricingInput
}

// ContractResult reports a rendered contract.
type ContractResult struct {
	Path        string    `json:"path"`
	FileName    string    `json:"file_name"`
	Total       float64   `json:"total"`
	GeneratedAt time.Time `json:"generated_at"`
}

// ContractRenderer writes contract PDFs into the contracts directory.
type ContractRenderer struct {
	contractsDir string
	log          *logrus.Logger
}

// NewContractRenderer returns a renderer writing into contractsDir.
func NewContractRenderer(contractsDir string, log *logrus.Logger) *ContractRenderer {
	return &ContractRenderer{contractsDir: contractsDir, log: log}
}

// Validate checks the contract fields without rendering anything.
func (r *ContractRenderer) Validate(f ContractFields) error {
	if err := validate.Struct(f); err != nil {
		return fmt.Errorf("datos de contrato invalidos: %w", err)
	}
	return nil
}

// Render validates the fields and writes the contract PDF. The returned
// total is recomputed here, not taken from the request.
func (r *ContractRenderer) Render(f ContractFields) (ContractResult, error) {
	if err := r.Validate(f); err != nil {
		telemetry.ExportsTotal.WithLabelValues("contract", "error").Inc()
		return ContractResult{}, err
	}

	now := time.Now()
	total := f.Total()
	name := fmt.Sprintf("contrato_%s_%s.pdf", f.ClientID, now.Format("20060102"))
	path := filepath.Join(r.contractsDir, name)

	if err := r.writePDF(path, f, total, now); err != nil {
		telemetry.ExportsTotal.WithLabelValues("contract", "error").Inc()
		return ContractResult{}, fmt.Errorf("render contract: %w", err)
	}

	telemetry.ExportsTotal.WithLabelValues("contract", "ok").Inc()
	r.log.WithFields(logrus.Fields{
		"client": f.ClientID,
		"file":   name,
		"total":  total,
	}).Info("contract exported")
	return ContractResult{Path: path, FileName: name, Total: total, GeneratedAt: now}, nil
}

func (r *ContractRenderer) writePDF(path string, f ContractFields, total float64, now time.Time) error {
	pdf := fpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetAutoPageBreak(true, 20)
	pdf.AliasNbPages("")
	pdf.SetFooterFunc(func() {
		pdf.SetY(-15)
		pdf.SetFont("Helvetica", "I", 8)
		pdf.CellFormat(0, 10, tr(fmt.Sprintf("Generado el %s - Página %d/{nb}",
			now.Format("2006-01-02"), pdf.PageNo())), "", 0, "C", false, 0, "")
	})
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(0, 12, tr("CONTRATO DE PAUTA PUBLICITARIA"), "", 1, "C", false, 0, "")
	pdf.Ln(4)

	labelAndValue := func(label, value string) {
		pdf.SetFont("Helvetica", "B", 11)
		pdf.CellFormat(50, 8, tr(label), "", 0, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 11)
		pdf.CellFormat(0, 8, tr(value), "", 1, "L", false, 0, "")
	}

	pdf.SetFont("Helvetica", "B", 13)
	pdf.CellFormat(0, 10, tr("Datos del cliente"), "B", 1, "L", false, 0, "")
	labelAndValue("Cliente:", f.DisplayName)
	labelAndValue("Identificador:", f.ClientID)
	labelAndValue("Contacto:", f.Contact)
	pdf.Ln(4)

	pdf.SetFont("Helvetica", "B", 13)
	pdf.CellFormat(0, 10, tr("Campaña"), "B", 1, "L", false, 0, "")
	labelAndValue("Nombre:", f.CampaignName)
	labelAndValue("Versiones:", fmt.Sprintf("%d", f.MediaVersions))
	if f.StartDate != "" || f.EndDate != "" {
		labelAndValue("Vigencia:", fmt.Sprintf("%s a %s", f.StartDate, f.EndDate))
	}
	if f.Notes != "" {
		pdf.SetFont("Helvetica", "B", 11)
		pdf.CellFormat(50, 8, "Notas:", "", 1, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 11)
		pdf.MultiCell(0, 6, tr(f.Notes), "", "L", false)
	}
	pdf.Ln(4)

	pdf.SetFont("Helvetica", "B", 13)
	pdf.CellFormat(0, 10, tr("Condiciones económicas"), "B", 1, "L", false, 0, "")
	moneyRow := func(label string, amount float64, bold bool) {
		style := ""
		if bold {
			style = "B"
		}
		pdf.SetFont("Helvetica", style, 11)
		pdf.CellFormat(120, 8, tr(label), "1", 0, "L", false, 0, "")
		pdf.CellFormat(60, 8, fmt.Sprintf("$ %.2f", amount), "1", 1, "R", false, 0, "")
	}
	moneyRow("Precio base", f.BasePrice, false)
	moneyRow(fmt.Sprintf("Descuento (%.1f%%)", f.DiscountPercent), -f.BasePrice*f.DiscountPercent/100, false)
	moneyRow("Impuestos", f.Tax, false)
	moneyRow("TOTAL", total, true)
	pdf.Ln(16)

	pdf.SetFont("Helvetica", "", 11)
	pdf.CellFormat(90, 8, "_______________________", "", 0, "C", false, 0, "")
	pdf.CellFormat(90, 8, "_______________________", "", 1, "C", false, 0, "")
	pdf.CellFormat(90, 8, tr("Por el operador"), "", 0, "C", false, 0, "")
	pdf.CellFormat(90, 8, tr("Por el cliente"), "", 1, "C", false, 0, "")

	return pdf.OutputFileAndClose(path)
}
