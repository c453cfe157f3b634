package server

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	fiscaldomain "github.com/smallbiznis/mercato/internal/fiscal/domain"
	"github.com/smallbiznis/mercato/internal/storecontext"
)

type fiscalRegionRequest struct {
	Country      string  `json:"country"`
	StateRegion  string  `json:"state_region"`
	TaxType      string  `json:"tax_type"`
	CollectsTax  bool    `json:"collects_tax"`
	StandardRate float64 `json:"standard_rate"`
}

type reducedRateRequest struct {
	Description string   `json:"description"`
	Percentage  float64  `json:"percentage"`
	Categories  []string `json:"categories"`
}

type tariffFeeRequest struct {
	Type                 string   `json:"type"`
	Amount               float64  `json:"amount"`
	Condition            *string  `json:"condition"`
	DestinationCountries []string `json:"destination_countries"`
}

type customsCodeRequest struct {
	OriginCountry  string  `json:"origin_country"`
	HarmonizedCode string  `json:"harmonized_code"`
	Description    string  `json:"description"`
	VariantID      *string `json:"variant_id"`
}

type createFiscalConfigurationRequest struct {
	FiscalService    string                `json:"fiscal_service"`
	StandardRate     float64               `json:"standard_rate"`
	Regions          []fiscalRegionRequest `json:"regions"`
	ReducedRates     []reducedRateRequest  `json:"reduced_rates"`
	TariffFees       []tariffFeeRequest    `json:"tariff_fees"`
	CustomsCodes     []customsCodeRequest  `json:"customs_codes"`
	PriceIncludesTax bool                  `json:"price_includes_tax"`
	DutyAtCheckout   bool                  `json:"duty_at_checkout"`
	DDPAvailable     bool                  `json:"ddp_available"`
	ShippingTaxed    bool                  `json:"shipping_taxed"`
	DigitalGoodsVAT  bool                  `json:"digital_goods_vat"`
}

type updateFiscalConfigurationRequest struct {
	FiscalService    *string  `json:"fiscal_service,omitempty"`
	StandardRate     *float64 `json:"standard_rate,omitempty"`
	PriceIncludesTax *bool    `json:"price_includes_tax,omitempty"`
	DutyAtCheckout   *bool    `json:"duty_at_checkout,omitempty"`
	DDPAvailable     *bool    `json:"ddp_available,omitempty"`
	ShippingTaxed    *bool    `json:"shipping_taxed,omitempty"`
	DigitalGoodsVAT  *bool    `json:"digital_goods_vat,omitempty"`
}

type calculateTaxRequest struct {
	Amount      float64 `json:"amount"`
	Country     string  `json:"country"`
	StateRegion string  `json:"state_region"`
}

func (s *Server) CreateFiscalConfiguration(c *gin.Context) {
	var req createFiscalConfigurationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.fiscalSvc.Create(c.Request.Context(), fiscaldomain.CreateRequest{
		FiscalService:    fiscaldomain.FiscalService(req.FiscalService),
		StandardRate:     req.StandardRate,
		Regions:          toDomainRegions(req.Regions),
		ReducedRates:     toDomainReducedRates(req.ReducedRates),
		TariffFees:       toDomainTariffFees(req.TariffFees),
		CustomsCodes:     toDomainCustomsCodes(req.CustomsCodes),
		PriceIncludesTax: req.PriceIncludesTax,
		DutyAtCheckout:   req.DutyAtCheckout,
		DDPAvailable:     req.DDPAvailable,
		ShippingTaxed:    req.ShippingTaxed,
		DigitalGoodsVAT:  req.DigitalGoodsVAT,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) GetFiscalConfiguration(c *gin.Context) {
	resp, err := s.fiscalSvc.Get(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) UpdateFiscalConfiguration(c *gin.Context) {
	var req updateFiscalConfigurationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	var service *fiscaldomain.FiscalService
	if req.FiscalService != nil {
		trimmed := fiscaldomain.FiscalService(strings.TrimSpace(*req.FiscalService))
		service = &trimmed
	}

	resp, err := s.fiscalSvc.Update(c.Request.Context(), fiscaldomain.UpdateRequest{
		FiscalService:    service,
		StandardRate:     req.StandardRate,
		PriceIncludesTax: req.PriceIncludesTax,
		DutyAtCheckout:   req.DutyAtCheckout,
		DDPAvailable:     req.DDPAvailable,
		ShippingTaxed:    req.ShippingTaxed,
		DigitalGoodsVAT:  req.DigitalGoodsVAT,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) DeleteFiscalConfiguration(c *gin.Context) {
	if err := s.fiscalSvc.Delete(c.Request.Context()); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{"deleted": true}})
}

func (s *Server) ValidateFiscalConfiguration(c *gin.Context) {
	resp, err := s.fiscalSvc.ValidateIntegrity(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListApplicableRates(c *gin.Context) {
	rates, err := s.fiscalSvc.ApplicableRates(c.Request.Context(),
		c.Query("country"), c.Query("state_region"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": rates})
}

func (s *Server) CalculateTax(c *gin.Context) {
	storeID, ok := storecontext.StoreIDFromContext(c.Request.Context())
	if !ok {
		AbortWithError(c, fiscaldomain.ErrInvalidStore)
		return
	}

	result, err := s.taxLimiter.AllowStore(c.Request.Context(), storeID.String())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if !result.Allowed {
		if s.obsMetrics != nil {
			s.obsMetrics.RecordRateLimitDenied(c.Request.Context(), storeID.String(), "tax_calculate", "bucket_empty")
		}
		c.Header("Retry-After", strconv.Itoa(int(result.RetryAfter.Seconds())+1))
		AbortWithError(c, ErrRateLimited)
		return
	}
	if s.obsMetrics != nil && s.taxLimiter.Enabled() {
		s.obsMetrics.RecordRateLimitAllowed(c.Request.Context(), storeID.String(), "tax_calculate")
	}

	var req calculateTaxRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	if req.Amount < 0 {
		AbortWithError(c, newValidationError("amount", "invalid_amount", "amount must not be negative"))
		return
	}

	resp, err := s.fiscalSvc.CalculateTax(c.Request.Context(), fiscaldomain.CalculateTaxRequest{
		Amount:      req.Amount,
		Country:     strings.TrimSpace(req.Country),
		StateRegion: strings.TrimSpace(req.StateRegion),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) AddFiscalRegion(c *gin.Context) {
	var req fiscalRegionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.fiscalSvc.AddRegion(c.Request.Context(), toDomainRegion(req))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) UpdateFiscalRegion(c *gin.Context) {
	country := strings.TrimSpace(c.Query("country"))
	if country == "" {
		AbortWithError(c, newValidationError("country", "invalid_country", "country query parameter is required"))
		return
	}

	var req fiscalRegionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.fiscalSvc.UpdateRegion(c.Request.Context(),
		country, c.Query("state_region"), toDomainRegion(req))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) RemoveFiscalRegion(c *gin.Context) {
	country := strings.TrimSpace(c.Query("country"))
	if country == "" {
		AbortWithError(c, newValidationError("country", "invalid_country", "country query parameter is required"))
		return
	}

	resp, err := s.fiscalSvc.RemoveRegion(c.Request.Context(), country, c.Query("state_region"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) AddReducedRate(c *gin.Context) {
	var req reducedRateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.fiscalSvc.AddReducedRate(c.Request.Context(), fiscaldomain.ReducedRate{
		Description: req.Description,
		Percentage:  req.Percentage,
		Categories:  req.Categories,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) UpdateReducedRate(c *gin.Context) {
	var req reducedRateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.fiscalSvc.UpdateReducedRate(c.Request.Context(), c.Param("description"), fiscaldomain.ReducedRate{
		Description: req.Description,
		Percentage:  req.Percentage,
		Categories:  req.Categories,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) RemoveReducedRate(c *gin.Context) {
	resp, err := s.fiscalSvc.RemoveReducedRate(c.Request.Context(), c.Param("description"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) AddTariffFee(c *gin.Context) {
	var req tariffFeeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.fiscalSvc.AddTariffFee(c.Request.Context(), toDomainTariffFee(req))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) UpdateTariffFee(c *gin.Context) {
	index, err := strconv.Atoi(strings.TrimSpace(c.Param("index")))
	if err != nil {
		AbortWithError(c, newValidationError("index", "invalid_index", "invalid tariff fee index"))
		return
	}

	var req tariffFeeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.fiscalSvc.UpdateTariffFee(c.Request.Context(), index, toDomainTariffFee(req))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) RemoveTariffFee(c *gin.Context) {
	index, err := strconv.Atoi(strings.TrimSpace(c.Param("index")))
	if err != nil {
		AbortWithError(c, newValidationError("index", "invalid_index", "invalid tariff fee index"))
		return
	}

	resp, err := s.fiscalSvc.RemoveTariffFee(c.Request.Context(), index)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) AddCustomsCode(c *gin.Context) {
	var req customsCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.fiscalSvc.AddCustomsCode(c.Request.Context(), toDomainCustomsCode(req))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) UpdateCustomsCode(c *gin.Context) {
	var req customsCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.fiscalSvc.UpdateCustomsCode(c.Request.Context(), c.Param("code"), toDomainCustomsCode(req))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) RemoveCustomsCode(c *gin.Context) {
	resp, err := s.fiscalSvc.RemoveCustomsCode(c.Request.Context(), c.Param("code"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func toDomainRegion(req fiscalRegionRequest) fiscaldomain.FiscalRegion {
	return fiscaldomain.FiscalRegion{
		Country:      req.Country,
		StateRegion:  req.StateRegion,
		TaxType:      fiscaldomain.TaxType(req.TaxType),
		CollectsTax:  req.CollectsTax,
		StandardRate: req.StandardRate,
	}
}

func toDomainRegions(reqs []fiscalRegionRequest) []fiscaldomain.FiscalRegion {
	out := make([]fiscaldomain.FiscalRegion, len(reqs))
	for i, req := range reqs {
		out[i] = toDomainRegion(req)
	}
	return out
}

func toDomainReducedRates(reqs []reducedRateRequest) []fiscaldomain.ReducedRate {
	out := make([]fiscaldomain.ReducedRate, len(reqs))
	for i, req := range reqs {
		out[i] = fiscaldomain.ReducedRate{
			Description: req.Description,
			Percentage:  req.Percentage,
			Categories:  req.Categories,
		}
	}
	return out
}

func toDomainTariffFee(req tariffFeeRequest) fiscaldomain.TariffRate {
	return fiscaldomain.TariffRate{
		Type:                 fiscaldomain.TariffType(req.Type),
		Amount:               req.Amount,
		Condition:            req.Condition,
		DestinationCountries: req.DestinationCountries,
	}
}

func toDomainTariffFees(reqs []tariffFeeRequest) []fiscaldomain.TariffRate {
	out := make([]fiscaldomain.TariffRate, len(reqs))
	for i, req := range reqs {
		out[i] = toDomainTariffFee(req)
	}
	return out
}

func toDomainCustomsCode(req customsCodeRequest) fiscaldomain.CustomsCode {
	return fiscaldomain.CustomsCode{
		OriginCountry:  req.OriginCountry,
		HarmonizedCode: req.HarmonizedCode,
		Description:    req.Description,
		VariantID:      req.VariantID,
	}
}

func toDomainCustomsCodes(reqs []customsCodeRequest) []fiscaldomain.CustomsCode {
	out := make([]fiscaldomain.CustomsCode, len(reqs))
	for i, req := range reqs {
		out[i] = toDomainCustomsCode(req)
	}
	return out
}
