package graphql

import (
	"encoding/json"
	"errors"
	"net/http"

	gql "github.com/graphql-go/graphql"
	"github.com/graphql-go/graphql/gqlerrors"

	"github.com/dmitrijs2005/feedstream/internal/common"
	"github.com/dmitrijs2005/feedstream/internal/logging"
	"github.com/dmitrijs2005/feedstream/internal/server/services"
)

// Handler executes GraphQL requests against the feed schema.
type Handler struct {
	schema gql.Schema
	logger logging.Logger
}

func NewHandler(us *services.UserService, ps *services.PostService, logger logging.Logger) (*Handler, error) {
	schema, err := buildSchema(&resolver{users: us, posts: ps})
	if err != nil {
		return nil, err
	}
	return &Handler{
		schema: schema,
		logger: logger.With("module", "graphql"),
	}, nil
}

type request struct {
	Query         string                 `json:"query"`
	OperationName string                 `json:"operationName"`
	Variables     map[string]interface{} `json:"variables"`
}

// formattedError is the client-visible shape of a failed resolver, matching
// the REST error body plus the HTTP-like status code.
type formattedError struct {
	Message string   `json:"message"`
	Status  int      `json:"status"`
	Data    []string `json:"data,omitempty"`
}

type response struct {
	Data   interface{}      `json:"data"`
	Errors []formattedError `json:"errors,omitempty"`
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(response{Errors: []formattedError{
			{Message: "Invalid request body", Status: http.StatusBadRequest},
		}})
		return
	}

	result := gql.Do(gql.Params{
		Schema:         h.schema,
		RequestString:  req.Query,
		OperationName:  req.OperationName,
		VariableValues: req.Variables,
		Context:        r.Context(),
	})

	resp := response{Data: result.Data}
	for _, ferr := range result.Errors {
		resp.Errors = append(resp.Errors, h.format(r, ferr))
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		h.logger.Error(r.Context(), "response encoding failed", "error", err)
	}
}

// format translates one execution error into the client-visible shape,
// logging failures that the taxonomy classifies as server-side.
func (h *Handler) format(r *http.Request, ferr gqlerrors.FormattedError) formattedError {
	err := originalError(ferr)

	var ve *common.ValidationError
	switch {
	case errors.As(err, &ve):
		return formattedError{Message: "Validation Error", Status: http.StatusUnprocessableEntity, Data: ve.Details}
	case errors.Is(err, common.ErrorUnauthorized):
		return formattedError{Message: "Not Authenticated", Status: http.StatusUnauthorized}
	case errors.Is(err, common.ErrorForbidden):
		return formattedError{Message: "Forbidden", Status: http.StatusForbidden}
	case errors.Is(err, common.ErrorNotFound):
		return formattedError{Message: "Not Found", Status: http.StatusNotFound}
	case errors.Is(err, common.ErrorConflict):
		return formattedError{Message: "Email already exists", Status: http.StatusConflict}
	}

	// query syntax and schema violations keep their own message
	var gqlErr *gqlerrors.Error
	if errors.As(err, &gqlErr) {
		return formattedError{Message: ferr.Message, Status: http.StatusBadRequest}
	}

	h.logger.Error(r.Context(), "resolver failed", "error", err)
	return formattedError{Message: "Internal Server Error", Status: http.StatusInternalServerError}
}

// originalError digs through the wrapping the executor applies to resolver
// errors.
func originalError(err error) error {
	for {
		switch e := err.(type) {
		case gqlerrors.FormattedError:
			if inner := e.OriginalError(); inner != nil {
				err = inner
				continue
			}
			return e
		case *gqlerrors.Error:
			if e.OriginalError != nil {
				err = e.OriginalError
				continue
			}
			return e
		default:
			return err
		}
	}
}
