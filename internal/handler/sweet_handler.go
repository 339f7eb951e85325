package handler

import (
	"net/http"
	"time"

	"sweetshop/internal/domain/model"
	"sweetshop/internal/domain/policy"
	"sweetshop/internal/middleware"
	"sweetshop/internal/usecase"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// レスポンスのお菓子1件
type SweetResponse struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Category    string    `json:"category"`
	Price       string    `json:"price"`
	Quantity    int64     `json:"quantity"`
	Description *string   `json:"description"`
	IsInStock   bool      `json:"is_in_stock"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func toSweetResponse(s model.Sweet) SweetResponse {
	return SweetResponse{
		ID:          s.ID,
		Name:        s.Name,
		Category:    s.Category,
		Price:       s.Price.StringFixed(2),
		Quantity:    s.Quantity,
		Description: s.Description,
		IsInStock:   s.IsInStock(),
		CreatedAt:   s.CreatedAt,
		UpdatedAt:   s.UpdatedAt,
	}
}

func toSweetResponses(sweets []model.Sweet) []SweetResponse {
	out := make([]SweetResponse, 0, len(sweets))
	for _, s := range sweets {
		out = append(out, toSweetResponse(s))
	}
	return out
}

type PurchaseResponse struct {
	Message           string `json:"message"`
	RemainingQuantity int64  `json:"remaining_quantity"`
}

type RestockResponse struct {
	Message     string `json:"message"`
	NewQuantity int64  `json:"new_quantity"`
}

// Route はディスパッチ表の1行
type Route struct {
	Operation policy.Operation
	Method    string
	Path      string
	Handler   echo.HandlerFunc
}

// /sweets のAPI
type SweetHandler struct {
	uc  *usecase.SweetUsecase
	log *zap.Logger
}

// DI
func NewSweetHandler(uc *usecase.SweetUsecase, log *zap.Logger) *SweetHandler {
	return &SweetHandler{uc: uc, log: log}
}

// 操作 → (method, path, handler)
// /sweets/search は /sweets/:id より先に登録する
func (h *SweetHandler) Routes() []Route {
	return []Route{
		{policy.OpList, http.MethodGet, "/sweets", h.list},
		{policy.OpSearch, http.MethodGet, "/sweets/search", h.search},
		{policy.OpCreate, http.MethodPost, "/sweets", h.create},
		{policy.OpRead, http.MethodGet, "/sweets/:id", h.read},
		{policy.OpUpdate, http.MethodPut, "/sweets/:id", h.update},
		{policy.OpPartialUpdate, http.MethodPatch, "/sweets/:id", h.partialUpdate},
		{policy.OpDelete, http.MethodDelete, "/sweets/:id", h.delete},
		{policy.OpPurchase, http.MethodPost, "/sweets/:id/purchase", h.purchase},
		{policy.OpRestock, http.MethodPost, "/sweets/:id/restock", h.restock},
	}
}

// ディスパッチ表をgroupに登録。
// ボディを読む前に401/403を返すため、各handlerの前でpolicyを見る。
func (h *SweetHandler) RegisterRoutes(g *echo.Group) {
	for _, r := range h.Routes() {
		g.Add(r.Method, r.Path, h.authorizeOp(r.Operation, r.Handler)).Name = string(r.Operation)
	}
}

func (h *SweetHandler) authorizeOp(op policy.Operation, next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if err := usecase.Authorize(op, middleware.PrincipalFrom(c)); err != nil {
			return writeError(c, h.log, err)
		}
		return next(c)
	}
}

func (h *SweetHandler) list(c echo.Context) error {
	sweets, err := h.uc.List(c.Request().Context(), middleware.PrincipalFrom(c))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, toSweetResponses(sweets))
}

func (h *SweetHandler) search(c echo.Context) error {
	sweets, err := h.uc.Search(c.Request().Context(), middleware.PrincipalFrom(c), usecase.SearchInput{
		Name:     c.QueryParam("name"),
		Category: c.QueryParam("category"),
		MinPrice: c.QueryParam("min_price"),
		MaxPrice: c.QueryParam("max_price"),
	})
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, toSweetResponses(sweets))
}

func (h *SweetHandler) create(c echo.Context) error {
	f, fields, ok := h.bindFields(c)
	if !ok {
		return h.badBody(c, fields)
	}

	s, err := h.uc.Create(c.Request().Context(), middleware.PrincipalFrom(c), f)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusCreated, toSweetResponse(s))
}

func (h *SweetHandler) read(c echo.Context) error {
	s, err := h.uc.Get(c.Request().Context(), middleware.PrincipalFrom(c), c.Param("id"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, toSweetResponse(s))
}

func (h *SweetHandler) update(c echo.Context) error {
	f, fields, ok := h.bindFields(c)
	if !ok {
		return h.badBody(c, fields)
	}

	s, err := h.uc.Update(c.Request().Context(), middleware.PrincipalFrom(c), c.Param("id"), f)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, toSweetResponse(s))
}

func (h *SweetHandler) partialUpdate(c echo.Context) error {
	f, fields, ok := h.bindFields(c)
	if !ok {
		return h.badBody(c, fields)
	}

	s, err := h.uc.Patch(c.Request().Context(), middleware.PrincipalFrom(c), c.Param("id"), f)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, toSweetResponse(s))
}

func (h *SweetHandler) delete(c echo.Context) error {
	if err := h.uc.Delete(c.Request().Context(), middleware.PrincipalFrom(c), c.Param("id")); err != nil {
		return writeError(c, h.log, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *SweetHandler) purchase(c echo.Context) error {
	amount, fields, ok := h.bindAmount(c)
	if !ok {
		return h.badBody(c, fields)
	}

	out, err := h.uc.Purchase(
		c.Request().Context(),
		middleware.PrincipalFrom(c),
		c.Param("id"),
		amount,
		c.Request().Header.Get("Idempotency-Key"),
	)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, PurchaseResponse{
		Message:           out.Message,
		RemainingQuantity: out.RemainingQuantity,
	})
}

func (h *SweetHandler) restock(c echo.Context) error {
	amount, fields, ok := h.bindAmount(c)
	if !ok {
		return h.badBody(c, fields)
	}

	out, err := h.uc.Restock(c.Request().Context(), middleware.PrincipalFrom(c), c.Param("id"), amount)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, RestockResponse{
		Message:     out.Message,
		NewQuantity: out.NewQuantity,
	})
}

// ボディが読めないときの400。
// :id付きのルートは先に存在を確認し、無ければ404を返す。
func (h *SweetHandler) badBody(c echo.Context, fields map[string]string) error {
	if id := c.Param("id"); id != "" {
		if _, err := h.uc.Get(c.Request().Context(), middleware.PrincipalFrom(c), id); err != nil {
			return writeError(c, h.log, err)
		}
	}
	return badRequest(c, fields)
}

func (h *SweetHandler) bindFields(c echo.Context) (usecase.SweetFields, map[string]string, bool) {
	raw, fields := decodeObject(c)
	if fields != nil {
		return usecase.SweetFields{}, fields, false
	}
	f, fields := parseSweetFields(raw)
	if len(fields) > 0 {
		return f, fields, false
	}
	return f, nil, true
}

func (h *SweetHandler) bindAmount(c echo.Context) (int64, map[string]string, bool) {
	raw, fields := decodeObject(c)
	if fields != nil {
		return 0, fields, false
	}
	amount, fields := parseAmount(raw)
	if fields != nil {
		return 0, fields, false
	}
	return amount, nil, true
}
