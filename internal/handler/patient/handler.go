package patient

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/patient-records/internal/model"
	"github.com/jwalitptl/patient-records/internal/service/patient"
	"github.com/jwalitptl/patient-records/pkg/errors"
	"github.com/jwalitptl/patient-records/pkg/format"
	"github.com/jwalitptl/patient-records/pkg/httputil"
	"github.com/jwalitptl/patient-records/pkg/logger"
	"github.com/jwalitptl/patient-records/pkg/messaging"
)

type Handler struct {
	service   patient.PatientService
	publisher messaging.Publisher
	log       *logger.Logger
}

// NewHandler builds the patient handler. A nil publisher disables change
// events.
func NewHandler(service patient.PatientService, publisher messaging.Publisher, log *logger.Logger) *Handler {
	if log == nil {
		log = logger.Nop()
	}
	return &Handler{
		service:   service,
		publisher: publisher,
		log:       log,
	}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	patients := r.Group("/patients")
	{
		patients.POST("", h.CreatePatient)
		patients.GET("", h.ListPatients)
		patients.GET("/:id", h.GetPatient)
		patients.PUT("/:id", h.ReplacePatient)
		patients.PATCH("/:id", h.UpdatePatient)
		patients.DELETE("/:id", h.DeletePatient)
	}
	r.GET("/options", h.GetOptions)
}

func (h *Handler) CreatePatient(c *gin.Context) {
	var form model.PatientForm
	if err := c.ShouldBindJSON(&form); err != nil {
		httputil.RespondWithMessage(c, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := maskForm(&form); err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	form.Normalize()

	if err := form.Validate(); err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	p, err := h.service.Create(c.Request.Context(), form)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	h.publish(c.Request.Context(), messaging.EventPatientCreated, p)
	httputil.RespondWithStatus(c, http.StatusCreated, p)
}

func (h *Handler) ListPatients(c *gin.Context) {
	var page model.Pagination
	if err := c.ShouldBindQuery(&page); err != nil {
		httputil.RespondWithMessage(c, http.StatusBadRequest, "invalid pagination")
		return
	}

	patients, err := h.service.Search(c.Request.Context(), c.Query("search"))
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	items, info := model.PageOf(patients, page)
	httputil.RespondWithPagination(c, items, info.Page, info.PageSize, info.Total)
}

func (h *Handler) GetPatient(c *gin.Context) {
	id, ok := patientID(c)
	if !ok {
		return
	}

	p, err := h.service.GetByID(c.Request.Context(), id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, p)
}

// UpdatePatient applies only the fields present in the body.
func (h *Handler) UpdatePatient(c *gin.Context) {
	id, ok := patientID(c)
	if !ok {
		return
	}

	var fields model.PatientUpdate
	if err := c.ShouldBindJSON(&fields); err != nil {
		httputil.RespondWithMessage(c, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := maskUpdate(&fields); err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	h.update(c, id, fields)
}

// ReplacePatient overwrites every field with the body.
func (h *Handler) ReplacePatient(c *gin.Context) {
	id, ok := patientID(c)
	if !ok {
		return
	}

	var form model.PatientForm
	if err := c.ShouldBindJSON(&form); err != nil {
		httputil.RespondWithMessage(c, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := maskForm(&form); err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	if err := form.Validate(); err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	h.update(c, id, model.UpdateFromForm(form))
}

func (h *Handler) update(c *gin.Context, id int64, fields model.PatientUpdate) {
	if err := fields.Validate(); err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	p, err := h.service.Update(c.Request.Context(), id, fields)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	h.publish(c.Request.Context(), messaging.EventPatientUpdated, p)
	httputil.RespondWithSuccess(c, p)
}

func (h *Handler) DeletePatient(c *gin.Context) {
	id, ok := patientID(c)
	if !ok {
		return
	}

	if err := h.service.Delete(c.Request.Context(), id); err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	h.publish(c.Request.Context(), messaging.EventPatientDeleted, gin.H{"id": id})
	c.Status(http.StatusNoContent)
}

func (h *Handler) GetOptions(c *gin.Context) {
	httputil.RespondWithSuccess(c, model.DefaultOptions())
}

// publish sends a change event. Failures are logged and never reach the
// client.
func (h *Handler) publish(ctx context.Context, eventType string, payload interface{}) {
	if h.publisher == nil {
		return
	}
	if err := h.publisher.Publish(ctx, eventType, payload); err != nil {
		h.log.Warn("change event dropped", "type", eventType, "error", err.Error())
	}
}

func patientID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		httputil.RespondWithMessage(c, http.StatusBadRequest, "invalid patient ID")
		return 0, false
	}
	return id, true
}

type maskedField struct {
	column  string
	digits  int
	mask    func(string) string
	message string
}

var maskedFields = []maskedField{
	{model.ColumnCPF, format.CPFDigits, format.CPF, "invalid CPF"},
	{"cep", format.CEPDigits, format.CEP, "invalid CEP"},
	{"telefone_residencial", format.PhoneDigits, format.Phone, "invalid phone number"},
	{model.ColumnMobile, format.PhoneDigits, format.Phone, "invalid phone number"},
	{"telefone_comercial", format.PhoneDigits, format.Phone, "invalid phone number"},
}

// mask formats the masked columns present in values. A value with more
// digits than its mask holds is rejected rather than truncated.
func mask(values map[string]*string) error {
	fields := errors.FieldErrors{}
	for _, m := range maskedFields {
		v := values[m.column]
		if v == nil {
			continue
		}
		if len(format.Digits(*v)) > m.digits {
			fields[m.column] = m.message
			continue
		}
		*v = m.mask(*v)
	}
	if len(fields) > 0 {
		return errors.Validation(fields)
	}
	return nil
}

func maskForm(f *model.PatientForm) error {
	return mask(map[string]*string{
		model.ColumnCPF:        &f.CPF,
		"cep":                  &f.PostalCode,
		"telefone_residencial": &f.HomePhone,
		model.ColumnMobile:     &f.MobilePhone,
		"telefone_comercial":   &f.WorkPhone,
	})
}

func maskUpdate(u *model.PatientUpdate) error {
	return mask(map[string]*string{
		model.ColumnCPF:        u.CPF,
		"cep":                  u.PostalCode,
		"telefone_residencial": u.HomePhone,
		model.ColumnMobile:     u.MobilePhone,
		"telefone_comercial":   u.WorkPhone,
	})
}
