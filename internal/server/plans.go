package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	plandomain "github.com/smallbiznis/mercato/internal/plan/domain"
)

type createPlanRequest struct {
	Code        string   `json:"code"`
	Name        string   `json:"name"`
	Description *string  `json:"description"`
	Interval    string   `json:"interval"`
	PriceCents  int64    `json:"price_cents"`
	Currency    string   `json:"currency"`
	TrialDays   int      `json:"trial_days"`
	Features    []string `json:"features"`
	Active      *bool    `json:"active"`
}

type updatePlanRequest struct {
	Name        *string  `json:"name,omitempty"`
	Description *string  `json:"description,omitempty"`
	PriceCents  *int64   `json:"price_cents,omitempty"`
	TrialDays   *int     `json:"trial_days,omitempty"`
	Features    []string `json:"features,omitempty"`
	Active      *bool    `json:"active,omitempty"`
}

func (s *Server) CreatePlan(c *gin.Context) {
	var req createPlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.planSvc.Create(c.Request.Context(), plandomain.CreateRequest{
		Code:        req.Code,
		Name:        req.Name,
		Description: req.Description,
		Interval:    plandomain.PlanInterval(req.Interval),
		PriceCents:  req.PriceCents,
		Currency:    req.Currency,
		TrialDays:   req.TrialDays,
		Features:    req.Features,
		Active:      req.Active,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) ListPlans(c *gin.Context) {
	var query struct {
		Interval  string `form:"interval"`
		Active    string `form:"active"`
		SortBy    string `form:"sort_by"`
		OrderBy   string `form:"order_by"`
		PageToken string `form:"page_token"`
		PageSize  int    `form:"page_size"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	active, err := parseOptionalBool(query.Active)
	if err != nil {
		AbortWithError(c, newValidationError("active", "invalid_active", "invalid active"))
		return
	}

	req := plandomain.ListRequest{
		Interval: plandomain.PlanInterval(strings.TrimSpace(query.Interval)),
		Active:   active,
		SortBy:   query.SortBy,
		OrderBy:  query.OrderBy,
	}
	req.PageToken = query.PageToken
	req.PageSize = query.PageSize

	resp, err := s.planSvc.List(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp.Plans, "page_info": resp.PageInfo})
}

func (s *Server) GetPlan(c *gin.Context) {
	resp, err := s.planSvc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) UpdatePlan(c *gin.Context) {
	var req updatePlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.planSvc.Update(c.Request.Context(), c.Param("id"), plandomain.UpdateRequest{
		Name:        req.Name,
		Description: req.Description,
		PriceCents:  req.PriceCents,
		TrialDays:   req.TrialDays,
		Features:    req.Features,
		Active:      req.Active,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
