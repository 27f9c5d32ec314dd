package handler

import (
	"io"
	"net/http"
	"slices"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/fish-storefront/internal/domain/cart"
	"github.com/xenking/fish-storefront/internal/domain/checkout"
	"github.com/xenking/fish-storefront/internal/domain/forms"
)

// maxBodySize bounds every request body. Forms are the largest at a few
// hundred bytes.
const maxBodySize = 64 << 10

var (
	errBadRequest  = errors.New("malformed request body")
	errUnknownItem = errors.New("item not found")
)

// apiError is the body of every non-2xx response.
type apiError struct {
	Code     int
	Message  string
	Fields   map[string]string
	Redirect checkout.View
}

func (a apiError) encode(e *jx.Encoder) {
	e.ObjStart()
	e.FieldStart("code")
	e.Int(a.Code)
	e.FieldStart("message")
	e.Str(a.Message)
	if len(a.Fields) > 0 {
		e.FieldStart("fields")
		e.ObjStart()
		names := make([]string, 0, len(a.Fields))
		for name := range a.Fields {
			names = append(names, name)
		}
		slices.Sort(names)
		for _, name := range names {
			e.FieldStart(name)
			e.Str(a.Fields[name])
		}
		e.ObjEnd()
	}
	if a.Redirect != "" {
		e.FieldStart("redirect")
		e.Str(string(a.Redirect))
	}
	e.ObjEnd()
}

// classify maps a domain error to its response.
func classify(err error) apiError {
	var ve *forms.ValidationError
	switch {
	case errors.As(err, &ve):
		return apiError{Code: http.StatusUnprocessableEntity, Message: ve.Message, Fields: ve.Fields}
	case errors.Is(err, cart.ErrInvalidQuantity):
		return apiError{Code: http.StatusUnprocessableEntity, Message: "Please enter a valid quantity"}
	case errors.Is(err, checkout.ErrEmptyCart):
		return apiError{Code: http.StatusUnprocessableEntity, Message: "Your cart is empty", Redirect: checkout.ViewCart}
	case errors.Is(err, checkout.ErrNoSnapshot):
		return apiError{Code: http.StatusConflict, Message: "No items to checkout", Redirect: checkout.ViewCart}
	case errors.Is(err, errUnknownItem):
		return apiError{Code: http.StatusNotFound, Message: "Item not found"}
	case errors.Is(err, errBadRequest):
		return apiError{Code: http.StatusBadRequest, Message: err.Error()}
	default:
		return apiError{Code: http.StatusInternalServerError, Message: "internal error"}
	}
}

// fail writes the response for err, logging it when it is not a client
// error.
func fail(w http.ResponseWriter, r *http.Request, err error) {
	a := classify(err)
	if a.Code >= http.StatusInternalServerError {
		zctx.From(r.Context()).Error("Request failed", zap.Error(err))
	}
	writeJSON(w, a.Code, a.encode)
}

func writeError(w http.ResponseWriter, _ *http.Request, status int, message string) {
	writeJSON(w, status, apiError{Code: status, Message: message}.encode)
}

func writeJSON(w http.ResponseWriter, status int, body func(e *jx.Encoder)) {
	var e jx.Encoder
	body(&e)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(e.Bytes())
}

// readBody returns the request body, or errBadRequest when it cannot be
// read or is too large.
func readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodySize))
	if err != nil {
		return nil, errors.Wrap(errBadRequest, err.Error())
	}
	return data, nil
}

// decodeObject reads a JSON object body field by field. An empty body is
// an empty object.
func decodeObject(w http.ResponseWriter, r *http.Request, field func(d *jx.Decoder, key string) error) error {
	data, err := readBody(w, r)
	if err != nil {
		return err
	}
	if len(data) == 0 {
		return nil
	}
	if err := jx.DecodeBytes(data).Obj(field); err != nil {
		return errors.Wrap(errBadRequest, err.Error())
	}
	return nil
}

func itemID(r *http.Request) (int, error) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil || id <= 0 {
		return 0, errors.Wrap(errBadRequest, "invalid item id")
	}
	return id, nil
}
