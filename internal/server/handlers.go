package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/kingrea/brief-maestro/internal/brief"
	"github.com/kingrea/brief-maestro/internal/render"
	"github.com/kingrea/brief-maestro/internal/schema"
	"github.com/kingrea/brief-maestro/internal/store"
	"github.com/kingrea/brief-maestro/internal/validator"
)

// Briefs is the subset of the document store the HTTP API needs.
type Briefs interface {
	Schema() *schema.Schema
	RenderOptions() render.Options
	Create(ctx context.Context, code string) (*brief.Brief, error)
	Get(ctx context.Context, code string) (*brief.Brief, error)
	SetField(ctx context.Context, code, section, field, raw string) (string, error)
	ClearField(ctx context.Context, code, section, field string) (string, error)
	Fill(ctx context.Context, code string, values map[string]any) ([]string, error)
	Validate(ctx context.Context, code string) (*validator.Report, error)
	Finalize(ctx context.Context, code string) (*brief.Brief, error)
	Archive(ctx context.Context, code string) (*brief.Brief, error)
	List(ctx context.Context, includeArchived bool) ([]store.Summary, error)
	Render(ctx context.Context, code string, format render.Format) (string, error)
}

// Register wires up all API routes on the provided Echo instance.
func Register(e *echo.Echo, briefs Briefs, logger *zap.Logger) {
	e.GET("/health", health())
	e.GET("/brief/keys", keys(briefs))
	e.POST("/brief/fill", fillTemplate(briefs))

	e.GET("/briefs", listBriefs(briefs, logger))
	e.POST("/briefs", createBrief(briefs, logger))
	e.GET("/briefs/:code", getBrief(briefs, logger))
	e.PUT("/briefs/:code/fields", setField(briefs, logger))
	e.POST("/briefs/:code/fill", fillBrief(briefs, logger))
	e.GET("/briefs/:code/validation", validateBrief(briefs, logger))
	e.POST("/briefs/:code/finalize", finalizeBrief(briefs, logger))
	e.POST("/briefs/:code/archive", archiveBrief(briefs, logger))
	e.GET("/briefs/:code/render", renderBrief(briefs, logger))
}

type errorResponse struct {
	Error   string   `json:"error"`
	Kind    string   `json:"kind,omitempty"`
	Missing []string `json:"missing,omitempty"`
}

type createRequest struct {
	Code string `json:"code"`
}

type setFieldRequest struct {
	Section string `json:"section"`
	Field   string `json:"field"`
	// Value nil clears the field.
	Value *string `json:"value"`
}

type fillRequest struct {
	UserData map[string]any `json:"user_data"`
}

type fillResponse struct {
	Markdown string   `json:"markdown"`
	Ignored  []string `json:"ignored,omitempty"`
}

type reportResponse struct {
	Code           string       `json:"code"`
	Status         brief.Status `json:"status"`
	Valid          bool         `json:"valid"`
	Missing        []string     `json:"missing"`
	Filled         int          `json:"filled"`
	Total          int          `json:"total"`
	RequiredFilled int          `json:"required_filled"`
	RequiredTotal  int          `json:"required_total"`
}

func health() echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]bool{"ok": true})
	}
}

func keys(briefs Briefs) echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string][]string{"keys": briefs.Schema().Keys()})
	}
}

// fillTemplate renders the schema filled from user_data without storing
// anything. Missing keys show the placeholder.
func fillTemplate(briefs Briefs) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req fillRequest
		if err := c.Bind(&req); err != nil {
			return badRequest(c, "invalid JSON body")
		}
		markdown, ignored, err := render.Preview(briefs.Schema(), req.UserData, briefs.RenderOptions())
		if err != nil {
			return c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error(), Kind: "InvalidValue"})
		}
		return c.JSON(http.StatusOK, fillResponse{Markdown: markdown, Ignored: ignored})
	}
}

func listBriefs(briefs Briefs, logger *zap.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		all, _ := strconv.ParseBool(c.QueryParam("all"))
		summaries, err := briefs.List(c.Request().Context(), all)
		if err != nil {
			return writeError(c, logger, err)
		}
		if summaries == nil {
			summaries = []store.Summary{}
		}
		return c.JSON(http.StatusOK, map[string][]store.Summary{"briefs": summaries})
	}
}

func createBrief(briefs Briefs, logger *zap.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req createRequest
		if err := c.Bind(&req); err != nil {
			return badRequest(c, "invalid JSON body")
		}
		b, err := briefs.Create(c.Request().Context(), req.Code)
		if err != nil {
			return writeError(c, logger, err)
		}
		return c.JSON(http.StatusCreated, b.Snapshot())
	}
}

func getBrief(briefs Briefs, logger *zap.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		b, err := briefs.Get(c.Request().Context(), c.Param("code"))
		if err != nil {
			return writeError(c, logger, err)
		}
		return c.JSON(http.StatusOK, b.Snapshot())
	}
}

func setField(briefs Briefs, logger *zap.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req setFieldRequest
		if err := c.Bind(&req); err != nil {
			return badRequest(c, "invalid JSON body")
		}
		if req.Section == "" || req.Field == "" {
			return badRequest(c, "section and field are required")
		}
		ctx := c.Request().Context()
		code := c.Param("code")
		var err error
		if req.Value == nil {
			_, err = briefs.ClearField(ctx, code, req.Section, req.Field)
		} else {
			_, err = briefs.SetField(ctx, code, req.Section, req.Field, *req.Value)
		}
		if err != nil {
			return writeError(c, logger, err)
		}
		b, err := briefs.Get(ctx, code)
		if err != nil {
			return writeError(c, logger, err)
		}
		return c.JSON(http.StatusOK, b.Snapshot())
	}
}

func fillBrief(briefs Briefs, logger *zap.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req fillRequest
		if err := c.Bind(&req); err != nil {
			return badRequest(c, "invalid JSON body")
		}
		paths, err := briefs.Fill(c.Request().Context(), c.Param("code"), req.UserData)
		if err != nil {
			return writeError(c, logger, err)
		}
		if paths == nil {
			paths = []string{}
		}
		return c.JSON(http.StatusOK, map[string][]string{"written": paths})
	}
}

func validateBrief(briefs Briefs, logger *zap.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		report, err := briefs.Validate(c.Request().Context(), c.Param("code"))
		if err != nil {
			return writeError(c, logger, err)
		}
		missing := report.Missing
		if missing == nil {
			missing = []string{}
		}
		return c.JSON(http.StatusOK, reportResponse{
			Code:           report.Code,
			Status:         report.Status,
			Valid:          report.IsValid(),
			Missing:        missing,
			Filled:         report.Filled,
			Total:          report.Total,
			RequiredFilled: report.RequiredFilled,
			RequiredTotal:  report.RequiredTotal,
		})
	}
}

func finalizeBrief(briefs Briefs, logger *zap.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		b, err := briefs.Finalize(c.Request().Context(), c.Param("code"))
		if err != nil {
			return writeError(c, logger, err)
		}
		return c.JSON(http.StatusOK, b.Snapshot())
	}
}

func archiveBrief(briefs Briefs, logger *zap.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		b, err := briefs.Archive(c.Request().Context(), c.Param("code"))
		if err != nil {
			return writeError(c, logger, err)
		}
		return c.JSON(http.StatusOK, b.Snapshot())
	}
}

func renderBrief(briefs Briefs, logger *zap.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		format, err := render.ParseFormat(c.QueryParam("format"))
		if err != nil {
			return badRequest(c, err.Error())
		}
		out, err := briefs.Render(c.Request().Context(), c.Param("code"), format)
		if err != nil {
			return writeError(c, logger, err)
		}
		contentType := "text/markdown; charset=utf-8"
		if format == render.FormatText {
			contentType = echo.MIMETextPlainCharsetUTF8
		}
		return c.Blob(http.StatusOK, contentType, []byte(out))
	}
}

func badRequest(c echo.Context, message string) error {
	return c.JSON(http.StatusBadRequest, errorResponse{Error: message, Kind: "InvalidInput"})
}

// writeError maps brief error kinds to HTTP statuses. Anything else is an
// internal failure and is logged.
func writeError(c echo.Context, logger *zap.Logger, err error) error {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		logger.Error("request failed",
			zap.String("route", c.Path()),
			zap.String("code", c.Param("code")),
			zap.Error(err))
	}
	if errors.Is(err, context.Canceled) {
		status = http.StatusServiceUnavailable
	}
	return c.JSON(status, errorResponse{
		Error:   err.Error(),
		Kind:    brief.ErrorKind(err),
		Missing: brief.MissingFields(err),
	})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, brief.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, brief.ErrAlreadyExists),
		errors.Is(err, brief.ErrFinalized),
		errors.Is(err, brief.ErrArchived):
		return http.StatusConflict
	case errors.Is(err, brief.ErrUnknownField),
		errors.Is(err, brief.ErrInvalidCode),
		errors.Is(err, brief.ErrInvalidValue):
		return http.StatusBadRequest
	case errors.Is(err, brief.ErrValidationIncomplete):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
