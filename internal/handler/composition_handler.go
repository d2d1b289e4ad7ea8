package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/qbank-composer/internal/model"
	"github.com/stemsi/qbank-composer/internal/response"
	"github.com/stemsi/qbank-composer/internal/service"
	"github.com/stemsi/qbank-composer/internal/validator"
)

// CompositionHandler exposes exam composition for one template.
type CompositionHandler struct {
	compositionService *service.CompositionService
	historyService     *service.HistoryService
	log                zerolog.Logger
}

func NewCompositionHandler(compositionService *service.CompositionService, historyService *service.HistoryService, log zerolog.Logger) *CompositionHandler {
	return &CompositionHandler{
		compositionService: compositionService,
		historyService:     historyService,
		log:                log.With().Str("component", "composition_handler").Logger(),
	}
}

func templateID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return uuid.Nil, false
	}
	return id, true
}

// GetComposition godoc
// GET /api/v1/templates/:id/composition
func (h *CompositionHandler) GetComposition(c *gin.Context) {
	id, ok := templateID(c)
	if !ok {
		return
	}

	res, err := h.compositionService.GetComposition(c.Request.Context(), id)
	if err != nil {
		failWith(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"composition": res})
}

// Shuffle godoc
// POST /api/v1/templates/:id/composition/shuffle
func (h *CompositionHandler) Shuffle(c *gin.Context) {
	id, ok := templateID(c)
	if !ok {
		return
	}

	res, err := h.compositionService.Shuffle(c.Request.Context(), id)
	if err != nil {
		failWith(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"composition": res})
}

// GetSections godoc
// GET /api/v1/templates/:id/sections
func (h *CompositionHandler) GetSections(c *gin.Context) {
	id, ok := templateID(c)
	if !ok {
		return
	}

	sections, constraints, err := h.compositionService.Sections(c.Request.Context(), id)
	if err != nil {
		failWith(c, h.log, err)
		return
	}
	if sections == nil {
		sections = []model.SectionRule{}
	}
	response.Success(c, http.StatusOK, gin.H{"sections": sections, "constraints": constraints})
}

// ReplaceSections godoc
// PUT /api/v1/templates/:id/sections
func (h *CompositionHandler) ReplaceSections(c *gin.Context) {
	id, ok := templateID(c)
	if !ok {
		return
	}

	var req model.UpdateSectionsRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	rules := make([]model.SectionRule, len(req.Sections))
	for i, s := range req.Sections {
		rules[i] = s.Rule()
	}

	sections, err := h.compositionService.ReplaceSections(c.Request.Context(), id, rules)
	if err != nil {
		failWith(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"sections": sections})
}

// UpdateSection godoc
// PATCH /api/v1/templates/:id/sections/:section_id
func (h *CompositionHandler) UpdateSection(c *gin.Context) {
	id, ok := templateID(c)
	if !ok {
		return
	}
	sectionID, err := uuid.Parse(c.Param("section_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	var req model.SectionRuleRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}
	req.ID = &sectionID

	sections, err := h.compositionService.UpdateSection(c.Request.Context(), id, req.Rule())
	if err != nil {
		failWith(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"sections": sections})
}

// SetConstraints godoc
// PUT /api/v1/templates/:id/constraints
func (h *CompositionHandler) SetConstraints(c *gin.Context) {
	id, ok := templateID(c)
	if !ok {
		return
	}

	var req model.UpdateConstraintsRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	if err := h.compositionService.SetConstraints(c.Request.Context(), id, req.Ceilings); err != nil {
		failWith(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"constraints": req.Ceilings})
}

// Balance godoc
// POST /api/v1/templates/:id/composition/balance
func (h *CompositionHandler) Balance(c *gin.Context) {
	id, ok := templateID(c)
	if !ok {
		return
	}

	var req model.BalanceRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	res, err := h.compositionService.Balance(c.Request.Context(), id, req.TargetPoints)
	if err != nil {
		failWith(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"composition": res})
}

// RemoveQuestion godoc
// DELETE /api/v1/templates/:id/composition/questions/:qid
func (h *CompositionHandler) RemoveQuestion(c *gin.Context) {
	id, ok := templateID(c)
	if !ok {
		return
	}
	qid, err := uuid.Parse(c.Param("qid"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	res, err := h.compositionService.RemoveQuestion(c.Request.Context(), id, qid)
	if err != nil {
		failWith(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"composition": res})
}

// SetAnswerFormat godoc
// PUT /api/v1/templates/:id/composition/overrides/:qid
func (h *CompositionHandler) SetAnswerFormat(c *gin.Context) {
	id, ok := templateID(c)
	if !ok {
		return
	}
	qid, err := uuid.Parse(c.Param("qid"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	var req model.AnswerFormatRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	res, err := h.compositionService.SetAnswerFormat(c.Request.Context(), id, qid, model.AnswerFormat{
		LineLength:    req.LineLength,
		SolutionSpace: req.SolutionSpace,
	})
	if err != nil {
		failWith(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"composition": res})
}

// GenerateVersions godoc
// POST /api/v1/templates/:id/versions
func (h *CompositionHandler) GenerateVersions(c *gin.Context) {
	id, ok := templateID(c)
	if !ok {
		return
	}

	var req model.GenerateVersionsRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	set, err := h.compositionService.GenerateVersions(c.Request.Context(), id, req.Count, req.Shuffle)
	if err != nil {
		failWith(c, h.log, err)
		return
	}
	response.Success(c, http.StatusCreated, gin.H{"version_set": set})
}

// History godoc
// GET /api/v1/templates/:id/history?limit=
func (h *CompositionHandler) History(c *gin.Context) {
	id, ok := templateID(c)
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(c.Query("limit"))

	exams, err := h.historyService.List(c.Request.Context(), id, limit)
	if err != nil {
		failWith(c, h.log, err)
		return
	}
	if exams == nil {
		exams = []model.GeneratedExam{}
	}
	response.Success(c, http.StatusOK, gin.H{"exams": exams})
}

// AvailableCount godoc
// GET /api/v1/sections/available?course=&type=&tags=
func (h *CompositionHandler) AvailableCount(c *gin.Context) {
	var req model.AvailableCountRequest
	if fields := validator.BindQuery(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}
	req.Tags = splitTags(req.Tags)

	n, err := h.compositionService.CountAvailable(c.Request.Context(), req.Rule())
	if err != nil {
		failWith(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"available": n})
}
