// Package memory holds in-memory repository implementations used by the
// service tests. Semantics mirror the postgres package, including the
// optimistic version check and half-open overlap comparison.
package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/teleclinic/consult-api/internal/model"
	apperrors "github.com/teleclinic/consult-api/pkg/errors"
)

type ConsultationRepository struct {
	mu   sync.Mutex
	byID map[uuid.UUID]*model.Consultation

	// Patients lets ListWithPatients resolve patient rows the way the
	// postgres join does.
	Patients *PatientRepository

	// Loc is the clinic timezone for day filtering.
	Loc *time.Location

	// FailCreate forces Create/CreateTx to fail, for atomicity tests.
	FailCreate error

	// OnDoctorLock runs once inside the next WithDoctorLock, after the
	// serialization point and before the caller's function.
	OnDoctorLock func()
}

func NewConsultationRepository() *ConsultationRepository {
	return &ConsultationRepository{byID: make(map[uuid.UUID]*model.Consultation), Loc: time.UTC}
}

func (r *ConsultationRepository) Create(ctx context.Context, c *model.Consultation) error {
	return r.CreateTx(ctx, nil, c)
}

func (r *ConsultationRepository) CreateTx(_ context.Context, _ *sqlx.Tx, c *model.Consultation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.FailCreate != nil {
		return r.FailCreate
	}
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	now := time.Now().UTC()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
		c.UpdatedAt = now
	}
	cp := *c
	r.byID[c.ID] = &cp
	return nil
}

func (r *ConsultationRepository) Get(_ context.Context, id uuid.UUID) (*model.Consultation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.byID[id]
	if !ok {
		return nil, apperrors.NotFound("consultation")
	}
	cp := *c
	return &cp, nil
}

func (r *ConsultationRepository) Update(_ context.Context, c *model.Consultation, expectedVersion time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.byID[c.ID]
	if !ok {
		return apperrors.NotFound("consultation")
	}
	if !stored.UpdatedAt.Equal(expectedVersion) {
		return apperrors.VersionMismatch("consultation")
	}
	c.UpdatedAt = time.Now().UTC()
	cp := *c
	r.byID[c.ID] = &cp
	return nil
}

func (r *ConsultationRepository) List(ctx context.Context, filters *model.ConsultationFilters) ([]*model.Consultation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Consultation
	for _, c := range r.byID {
		if r.matches(c, filters) {
			cp := *c
			out = append(out, &cp)
		}
	}
	sortByScheduledAt(out)
	if filters != nil && filters.Limit > 0 && len(out) > filters.Limit {
		out = out[:filters.Limit]
	}
	return out, nil
}

func (r *ConsultationRepository) ListWithPatients(ctx context.Context, filters *model.ConsultationFilters) ([]*model.ConsultationWithPatient, error) {
	list, err := r.List(ctx, filters)
	if err != nil {
		return nil, err
	}
	out := make([]*model.ConsultationWithPatient, 0, len(list))
	for _, c := range list {
		cwp := &model.ConsultationWithPatient{Consultation: *c}
		if r.Patients != nil {
			if p, err := r.Patients.Get(ctx, c.PatientID); err == nil {
				cwp.Patient = p
			}
		}
		out = append(out, cwp)
	}
	return out, nil
}

func (r *ConsultationRepository) HasOverlap(_ context.Context, doctorID uuid.UUID, start, end time.Time, excludeID *uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.byID {
		if c.DoctorID != doctorID || c.Status == model.ConsultationStatusCancelled {
			continue
		}
		if excludeID != nil && c.ID == *excludeID {
			continue
		}
		if c.Overlaps(start, end) {
			return true, nil
		}
	}
	return false, nil
}

func (r *ConsultationRepository) HasOverlapTx(ctx context.Context, _ *sqlx.Tx, doctorID uuid.UUID, start, end time.Time, excludeID *uuid.UUID) (bool, error) {
	return r.HasOverlap(ctx, doctorID, start, end, excludeID)
}

func (r *ConsultationRepository) UpdateTx(ctx context.Context, _ *sqlx.Tx, c *model.Consultation, expectedVersion time.Time) error {
	return r.Update(ctx, c, expectedVersion)
}

// WithDoctorLock fires OnDoctorLock once after the serialization point, so
// tests can interleave a competing calendar write there.
func (r *ConsultationRepository) WithDoctorLock(_ context.Context, _ uuid.UUID, fn func(tx *sqlx.Tx) error) error {
	if r.OnDoctorLock != nil {
		hook := r.OnDoctorLock
		r.OnDoctorLock = nil
		hook()
	}
	return fn(nil)
}

func (r *ConsultationRepository) matches(c *model.Consultation, f *model.ConsultationFilters) bool {
	if f == nil {
		return true
	}
	if f.DoctorID != uuid.Nil && c.DoctorID != f.DoctorID {
		return false
	}
	if f.PatientID != uuid.Nil && c.PatientID != f.PatientID {
		return false
	}
	if f.Status != "" && c.Status != f.Status {
		return false
	}
	if f.Day != "" {
		loc := r.Loc
		if loc == nil {
			loc = time.UTC
		}
		dayStart, err := time.ParseInLocation("2006-01-02", f.Day, loc)
		if err != nil {
			return false
		}
		dayEnd := dayStart.AddDate(0, 0, 1)
		if c.ScheduledAt.Before(dayStart.UTC()) || !c.ScheduledAt.Before(dayEnd.UTC()) {
			return false
		}
	}
	return true
}

func sortByScheduledAt(list []*model.Consultation) {
	for i := 1; i < len(list); i++ {
		for j := i; j > 0 && list[j].ScheduledAt.Before(list[j-1].ScheduledAt); j-- {
			list[j], list[j-1] = list[j-1], list[j]
		}
	}
}

type PatientRepository struct {
	mu   sync.Mutex
	byID map[uuid.UUID]*model.Patient
}

func NewPatientRepository() *PatientRepository {
	return &PatientRepository{byID: make(map[uuid.UUID]*model.Patient)}
}

func (r *PatientRepository) Get(_ context.Context, id uuid.UUID) (*model.Patient, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.byID[id]
	if !ok {
		return nil, apperrors.NotFound("patient")
	}
	cp := *p
	return &cp, nil
}

func (r *PatientRepository) UpsertByEmail(_ context.Context, patient *model.Patient) (*model.Patient, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.byID {
		if p.Email == patient.Email {
			cp := *p
			return &cp, nil
		}
	}
	if patient.ID == uuid.Nil {
		patient.ID = uuid.New()
	}
	if patient.CreatedAt.IsZero() {
		patient.CreatedAt = time.Now().UTC()
	}
	cp := *patient
	r.byID[patient.ID] = &cp
	out := *patient
	return &out, nil
}

func (r *PatientRepository) List(_ context.Context, filters *model.PatientFilters) ([]*model.Patient, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Patient
	for _, p := range r.byID {
		if filters != nil && filters.Search != "" {
			q := strings.ToLower(filters.Search)
			if !strings.Contains(strings.ToLower(p.Email), q) &&
				!strings.Contains(strings.ToLower(p.FullName), q) {
				continue
			}
		}
		cp := *p
		out = append(out, &cp)
	}
	return out, nil
}

func (r *PatientRepository) ListWithRecordStats(_ context.Context) ([]*model.DoctorPatient, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*model.DoctorPatient, 0, len(r.byID))
	for _, p := range r.byID {
		out = append(out, &model.DoctorPatient{Patient: *p})
	}
	return out, nil
}

type DoctorRepository struct {
	mu   sync.Mutex
	byID map[uuid.UUID]*model.Doctor
}

func NewDoctorRepository() *DoctorRepository {
	return &DoctorRepository{byID: make(map[uuid.UUID]*model.Doctor)}
}

func (r *DoctorRepository) Create(_ context.Context, d *model.Doctor) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	cp := *d
	r.byID[d.ID] = &cp
	return nil
}

func (r *DoctorRepository) Get(_ context.Context, id uuid.UUID) (*model.Doctor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.byID[id]
	if !ok {
		return nil, apperrors.NotFound("doctor")
	}
	cp := *d
	return &cp, nil
}

func (r *DoctorRepository) GetByEmail(_ context.Context, email string) (*model.Doctor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, d := range r.byID {
		if d.Email == email {
			cp := *d
			return &cp, nil
		}
	}
	return nil, apperrors.NotFound("doctor")
}

func (r *DoctorRepository) Update(_ context.Context, d *model.Doctor) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[d.ID]; !ok {
		return apperrors.NotFound("doctor")
	}
	cp := *d
	r.byID[d.ID] = &cp
	return nil
}

func (r *DoctorRepository) ListActiveProfessionals(_ context.Context) ([]*model.Doctor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Doctor
	for _, d := range r.byID {
		if d.IsActive && d.IsMedicalProfessional {
			cp := *d
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *DoctorRepository) ListProfessionals(_ context.Context) ([]*model.Doctor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Doctor
	for _, d := range r.byID {
		if d.IsMedicalProfessional {
			cp := *d
			out = append(out, &cp)
		}
	}
	return out, nil
}

type ClinicalRecordRepository struct {
	mu   sync.Mutex
	byID map[uuid.UUID]*model.ClinicalRecord
}

func NewClinicalRecordRepository() *ClinicalRecordRepository {
	return &ClinicalRecordRepository{byID: make(map[uuid.UUID]*model.ClinicalRecord)}
}

func (r *ClinicalRecordRepository) Create(_ context.Context, rec *model.ClinicalRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	now := time.Now().UTC()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
		rec.UpdatedAt = now
	}
	cp := *rec
	r.byID[rec.ID] = &cp
	return nil
}

func (r *ClinicalRecordRepository) Get(_ context.Context, id uuid.UUID) (*model.ClinicalRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.byID[id]
	if !ok {
		return nil, apperrors.NotFound("clinical record")
	}
	cp := *rec
	return &cp, nil
}

func (r *ClinicalRecordRepository) Update(_ context.Context, rec *model.ClinicalRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[rec.ID]; !ok {
		return apperrors.NotFound("clinical record")
	}
	rec.UpdatedAt = time.Now().UTC()
	cp := *rec
	r.byID[rec.ID] = &cp
	return nil
}

func (r *ClinicalRecordRepository) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[id]; !ok {
		return apperrors.NotFound("clinical record")
	}
	delete(r.byID, id)
	return nil
}

func (r *ClinicalRecordRepository) ListForPatient(_ context.Context, patientID uuid.UUID) ([]*model.ClinicalRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.ClinicalRecord
	for _, rec := range r.byID {
		if rec.PatientID == patientID {
			cp := *rec
			out = append(out, &cp)
		}
	}
	// Newest first.
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j].CreatedAt.After(out[j-1].CreatedAt); j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out, nil
}

func (r *ClinicalRecordRepository) Search(ctx context.Context, patientID uuid.UUID, query string) ([]*model.ClinicalRecord, error) {
	all, err := r.ListForPatient(ctx, patientID)
	if err != nil {
		return nil, err
	}
	var out []*model.ClinicalRecord
	for _, rec := range all {
		if rec.Matches(query) {
			out = append(out, rec)
		}
	}
	return out, nil
}

type TemplateRepository struct {
	mu   sync.Mutex
	byID map[uuid.UUID]*model.ClinicalTemplate
}

func NewTemplateRepository() *TemplateRepository {
	return &TemplateRepository{byID: make(map[uuid.UUID]*model.ClinicalTemplate)}
}

func (r *TemplateRepository) Create(_ context.Context, t *model.ClinicalTemplate) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	now := time.Now().UTC()
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
		t.UpdatedAt = now
	}
	cp := *t
	r.byID[t.ID] = &cp
	return nil
}

func (r *TemplateRepository) Get(_ context.Context, id uuid.UUID) (*model.ClinicalTemplate, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.byID[id]
	if !ok {
		return nil, apperrors.NotFound("template")
	}
	cp := *t
	return &cp, nil
}

func (r *TemplateRepository) Update(_ context.Context, t *model.ClinicalTemplate) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[t.ID]; !ok {
		return apperrors.NotFound("template")
	}
	t.UpdatedAt = time.Now().UTC()
	cp := *t
	r.byID[t.ID] = &cp
	return nil
}

func (r *TemplateRepository) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[id]; !ok {
		return apperrors.NotFound("template")
	}
	delete(r.byID, id)
	return nil
}

func (r *TemplateRepository) ListForOwner(_ context.Context, ownerID uuid.UUID) ([]*model.ClinicalTemplate, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.ClinicalTemplate
	for _, t := range r.byID {
		if t.OwnerID == ownerID {
			cp := *t
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *TemplateRepository) GetByName(_ context.Context, ownerID uuid.UUID, name string) (*model.ClinicalTemplate, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.byID {
		if t.OwnerID == ownerID && t.Name == name {
			cp := *t
			return &cp, nil
		}
	}
	return nil, apperrors.NotFound("template")
}

type PaymentRepository struct {
	mu   sync.Mutex
	byID map[uuid.UUID]*model.Payment

	Consultations *ConsultationRepository
	PatientsRepo  *PatientRepository
}

func NewPaymentRepository() *PaymentRepository {
	return &PaymentRepository{byID: make(map[uuid.UUID]*model.Payment)}
}

func (r *PaymentRepository) Create(_ context.Context, p *model.Payment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	now := time.Now().UTC()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
		p.UpdatedAt = now
	}
	cp := *p
	r.byID[p.ID] = &cp
	return nil
}

func (r *PaymentRepository) Get(_ context.Context, id uuid.UUID) (*model.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.byID[id]
	if !ok {
		return nil, apperrors.NotFound("payment")
	}
	cp := *p
	return &cp, nil
}

func (r *PaymentRepository) GetByConsultation(_ context.Context, consultationID uuid.UUID) (*model.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.byID {
		if p.ConsultationID == consultationID {
			cp := *p
			return &cp, nil
		}
	}
	return nil, apperrors.NotFound("payment")
}

func (r *PaymentRepository) GetBySessionID(_ context.Context, sessionID string) (*model.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.byID {
		if p.StripeSessionID == sessionID {
			cp := *p
			return &cp, nil
		}
	}
	return nil, apperrors.NotFound("payment")
}

func (r *PaymentRepository) Update(_ context.Context, p *model.Payment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[p.ID]; !ok {
		return apperrors.NotFound("payment")
	}
	p.UpdatedAt = time.Now().UTC()
	cp := *p
	r.byID[p.ID] = &cp
	return nil
}

func (r *PaymentRepository) ListForDoctor(ctx context.Context, doctorID uuid.UUID) ([]*model.PaymentWithPatient, error) {
	r.mu.Lock()
	payments := make([]*model.Payment, 0, len(r.byID))
	for _, p := range r.byID {
		cp := *p
		payments = append(payments, &cp)
	}
	r.mu.Unlock()

	var out []*model.PaymentWithPatient
	for _, p := range payments {
		if r.Consultations == nil {
			continue
		}
		c, err := r.Consultations.Get(ctx, p.ConsultationID)
		if err != nil || c.DoctorID != doctorID {
			continue
		}
		pwp := &model.PaymentWithPatient{Payment: *p, Specialty: c.Specialty, ScheduledAt: c.ScheduledAt}
		if r.PatientsRepo != nil {
			if pat, err := r.PatientsRepo.Get(ctx, c.PatientID); err == nil {
				pwp.PatientName = pat.FullName
			}
		}
		out = append(out, pwp)
	}
	return out, nil
}
