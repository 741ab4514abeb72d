package pricing

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	validator "github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/noah-isme/toko-pricing/internal/catalog"
	"github.com/noah-isme/toko-pricing/internal/common"
	"github.com/noah-isme/toko-pricing/internal/shipping"
)

const maxBatchProducts = 200

// Handler exposes the pricing HTTP endpoints.
type Handler struct {
	calc     *Calculator
	validate *validator.Validate
}

// HandlerConfig configures the Handler dependencies.
type HandlerConfig struct {
	Calculator *Calculator
	Validator  *validator.Validate
}

// NewHandler constructs a Handler.
func NewHandler(cfg HandlerConfig) *Handler {
	v := cfg.Validator
	if v == nil {
		v = NewValidator()
	}
	return &Handler{calc: cfg.Calculator, validate: v}
}

// NewValidator returns a validator that reports fields by their JSON names.
func NewValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

type quoteItem struct {
	Product  catalog.Ref  `json:"product"`
	Quantity int          `json:"quantity" validate:"gte=1"`
	Variant  *catalog.Ref `json:"variant,omitempty"`
}

type quoteAddress struct {
	PostalCode string `json:"postalCode" validate:"omitempty,max=16"`
	City       string `json:"city"`
	Province   string `json:"province"`
	Country    string `json:"country"`
}

type quoteRequest struct {
	Items          []quoteItem  `json:"items" validate:"required,min=1,max=200,dive"`
	CouponID       string       `json:"couponId" validate:"omitempty,max=64"`
	CouponCode     string       `json:"couponCode" validate:"omitempty,max=64"`
	ShippingMethod string       `json:"shippingMethod" validate:"omitempty,oneof=standard express"`
	PaymentMethod  string       `json:"paymentMethod" validate:"omitempty,max=32"`
	Address        quoteAddress `json:"address"`
}

type productsRequest struct {
	ProductIDs []string `json:"productIds" validate:"required,min=1,max=200,dive,required"`
}

type fieldError struct {
	Field string `json:"field"`
	Rule  string `json:"rule"`
}

// Quote handles POST /api/v1/pricing/quote.
func (h *Handler) Quote(w http.ResponseWriter, r *http.Request) {
	if h.calc == nil {
		common.JSONError(w, http.StatusInternalServerError, common.CodeInternal, "pricing calculator not configured", nil)
		return
	}
	var body quoteRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		common.WriteError(w, common.InvalidInput("invalid JSON payload", nil))
		return
	}
	if err := h.validate.Struct(body); err != nil {
		common.WriteError(w, invalidFields(err))
		return
	}
	req, err := body.toRequest()
	if err != nil {
		common.WriteError(w, common.InvalidInput(err.Error(), nil))
		return
	}
	totals, err := h.calc.Compute(r.Context(), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	common.Data(w, http.StatusOK, totals)
}

// Products handles POST /api/v1/pricing/products.
func (h *Handler) Products(w http.ResponseWriter, r *http.Request) {
	if h.calc == nil {
		common.JSONError(w, http.StatusInternalServerError, common.CodeInternal, "pricing calculator not configured", nil)
		return
	}
	var body productsRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		common.WriteError(w, common.InvalidInput("invalid JSON payload", nil))
		return
	}
	if err := h.validate.Struct(body); err != nil {
		common.WriteError(w, invalidFields(err))
		return
	}
	ids := catalog.NormalizeIDs(body.ProductIDs)
	if len(ids) > maxBatchProducts {
		ids = ids[:maxBatchProducts]
	}
	priced, err := h.calc.PriceProducts(r.Context(), ids, h.calc.now())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	common.Data(w, http.StatusOK, priced)
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrNoItems), errors.Is(err, ErrInvalidQuantity), errors.Is(err, ErrInvalidProductRef):
		common.WriteError(w, common.InvalidInput(err.Error(), nil))
	default:
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("pricing_request_failed")
		common.WriteError(w, common.NewAppError(common.CodeUnavailable, "pricing data temporarily unavailable", http.StatusServiceUnavailable, err))
	}
}

func (q quoteRequest) toRequest() (Request, error) {
	items := make([]LineItem, 0, len(q.Items))
	for i, it := range q.Items {
		if !it.Product.Valid() {
			return Request{}, fmt.Errorf("items[%d].product is required", i)
		}
		line := LineItem{Product: it.Product, Quantity: it.Quantity}
		if it.Variant != nil && it.Variant.Valid() {
			v := *it.Variant
			line.Variant = &v
		}
		items = append(items, line)
	}
	coupon := CouponByID(q.CouponID)
	if coupon.IsZero() {
		coupon = CouponByCode(q.CouponCode)
	}
	return Request{
		Items:          items,
		Coupon:         coupon,
		ShippingMethod: shipping.Method(q.ShippingMethod),
		PaymentMethod:  PaymentMethod(q.PaymentMethod),
		Address: Address{
			PostalCode: q.Address.PostalCode,
			City:       q.Address.City,
			Province:   q.Address.Province,
			Country:    q.Address.Country,
		},
	}, nil
}

func invalidFields(err error) *common.AppError {
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return common.InvalidInput("invalid request", nil)
	}
	details := make([]fieldError, 0, len(ve))
	for _, fe := range ve {
		field := fe.Namespace()
		if idx := strings.IndexByte(field, '.'); idx >= 0 {
			field = field[idx+1:]
		}
		details = append(details, fieldError{Field: field, Rule: fe.Tag()})
	}
	return common.InvalidInput("invalid request", details)
}
