package export

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jung-kurt/gofpdf"

	"github.com/teleclinic/consult-api/internal/model"
	"github.com/teleclinic/consult-api/internal/repository"
	apperrors "github.com/teleclinic/consult-api/pkg/errors"
)

// Service renders patient clinical histories as PDF documents.
type Service struct {
	patients repository.PatientRepository
	records  repository.ClinicalRecordRepository
	clinic   string
}

func NewService(patients repository.PatientRepository, records repository.ClinicalRecordRepository, clinicName string) *Service {
	if clinicName == "" {
		clinicName = "Teleclinic"
	}
	return &Service{patients: patients, records: records, clinic: clinicName}
}

// PatientHistory renders the full record history for a patient, newest first.
func (s *Service) PatientHistory(ctx context.Context, actor model.Actor, patientID uuid.UUID) ([]byte, string, error) {
	return s.render(ctx, actor, patientID, "")
}

// ForComplaint renders only the records whose chief complaint matches the
// given one, compared case-insensitively after trimming.
func (s *Service) ForComplaint(ctx context.Context, actor model.Actor, patientID uuid.UUID, complaint string) ([]byte, string, error) {
	complaint = strings.TrimSpace(complaint)
	if complaint == "" {
		return nil, "", apperrors.Validationf("complaint is required")
	}
	return s.render(ctx, actor, patientID, complaint)
}

func (s *Service) render(ctx context.Context, actor model.Actor, patientID uuid.UUID, complaint string) ([]byte, string, error) {
	if !actor.CanAccessClinicalData() {
		return nil, "", apperrors.Forbidden("role cannot access clinical data")
	}

	patient, err := s.patients.Get(ctx, patientID)
	if err != nil {
		return nil, "", err
	}
	records, err := s.records.ListForPatient(ctx, patientID)
	if err != nil {
		return nil, "", err
	}
	if complaint != "" {
		filtered := records[:0]
		for _, r := range records {
			if strings.EqualFold(strings.TrimSpace(r.ChiefComplaint), complaint) {
				filtered = append(filtered, r)
			}
		}
		records = filtered
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(fmt.Sprintf("Clinical history - %s", patient.FullName), true)
	pdf.SetAutoPageBreak(true, 20)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(0, 10, s.clinic, "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", 12)
	pdf.CellFormat(0, 8, "Clinical record history", "", 1, "C", false, 0, "")
	pdf.Ln(4)

	pdf.SetFont("Helvetica", "B", 11)
	pdf.CellFormat(0, 7, fmt.Sprintf("Patient: %s", patient.FullName), "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(0, 6, fmt.Sprintf("Email: %s", patient.Email), "", 1, "L", false, 0, "")
	if complaint != "" {
		pdf.CellFormat(0, 6, fmt.Sprintf("Filtered by complaint: %s", complaint), "", 1, "L", false, 0, "")
	}
	pdf.Ln(4)

	if len(records) == 0 {
		pdf.SetFont("Helvetica", "I", 10)
		pdf.CellFormat(0, 6, "No records on file.", "", 1, "L", false, 0, "")
	}

	for _, r := range records {
		pdf.SetFont("Helvetica", "B", 11)
		pdf.SetFillColor(235, 240, 245)
		pdf.CellFormat(0, 8, r.CreatedAt.Format("2 January 2006 15:04 MST"), "", 1, "L", true, 0, "")
		pdf.Ln(1)

		writeSection(pdf, "Chief complaint", r.ChiefComplaint)
		writeSection(pdf, "Background", r.Background)
		writeSection(pdf, "Assessment", r.Assessment)
		writeSection(pdf, "Plan", r.Plan)
		writeSection(pdf, "Allergies", r.Allergies)
		writeSection(pdf, "Medications", r.Medications)
		pdf.Ln(3)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, "", apperrors.Internal(err)
	}

	filename := fmt.Sprintf("history_%s.pdf", patient.ID)
	return buf.Bytes(), filename, nil
}

func writeSection(pdf *gofpdf.Fpdf, title, body string) {
	if strings.TrimSpace(body) == "" {
		return
	}
	pdf.SetFont("Helvetica", "B", 9)
	pdf.CellFormat(0, 5, title, "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	pdf.MultiCell(0, 5, body, "", "L", false)
	pdf.Ln(1)
}
