package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/qbank-composer/internal/model"
	"github.com/stemsi/qbank-composer/internal/repository"
	"github.com/stemsi/qbank-composer/internal/response"
	"github.com/stemsi/qbank-composer/internal/service"
	"github.com/stemsi/qbank-composer/internal/validator"
)

type QuestionHandler struct {
	questionService *service.QuestionService
	log             zerolog.Logger
}

func NewQuestionHandler(questionService *service.QuestionService, log zerolog.Logger) *QuestionHandler {
	return &QuestionHandler{
		questionService: questionService,
		log:             log.With().Str("component", "question_handler").Logger(),
	}
}

// List godoc
// GET /api/v1/questions?course=&type=&tags=&page_size=
func (h *QuestionHandler) List(c *gin.Context) {
	var q model.QuestionQuery
	if fields := validator.BindQuery(c, &q); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}
	q.Tags = splitTags(q.Tags)
	if q.PageSize == 0 {
		q.PageSize = repository.DefaultPageSize
	}

	page, err := h.questionService.Query(c.Request.Context(), q)
	if err != nil {
		h.log.Warn().Err(err).Msg("question query failed")
		response.FailWithDetail(c, http.StatusBadGateway, response.ErrFetchFailed, err.Error())
		return
	}
	if page.Results == nil {
		page.Results = []model.Question{}
	}

	response.SuccessWithPagination(c, http.StatusOK, gin.H{"questions": page.Results}, &response.Pagination{
		PerPage:    q.PageSize,
		TotalItems: page.Count,
		Returned:   len(page.Results),
	})
}

// Get godoc
// GET /api/v1/questions/:id
func (h *QuestionHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	q, err := h.questionService.Get(c.Request.Context(), id)
	if err != nil {
		failWith(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"question": q})
}

// Variants godoc
// GET /api/v1/blocks/:id/variants
func (h *QuestionHandler) Variants(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	variants, err := h.questionService.Variants(c.Request.Context(), id)
	if err != nil {
		response.Fail(c, http.StatusBadGateway, response.ErrFetchFailed)
		return
	}
	if variants == nil {
		variants = []model.Question{}
	}
	response.Success(c, http.StatusOK, gin.H{"variants": variants})
}

// splitTags accepts both ?tags=a&tags=b and ?tags=a,b.
func splitTags(raw []string) []string {
	var tags []string
	for _, r := range raw {
		for _, t := range strings.Split(r, ",") {
			if t = strings.TrimSpace(t); t != "" {
				tags = append(tags, t)
			}
		}
	}
	return tags
}
