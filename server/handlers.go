package server

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"

	"github.com/subtlepseudonym/forcelog"
	"github.com/subtlepseudonym/forcelog/plot"
	"github.com/subtlepseudonym/forcelog/session"
)

const workbookContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

var (
	uploadExtensions = map[string]bool{".csv": true, ".txt": true}
	validate         = validator.New()
)

// Selection is the table and head the session is viewing
type Selection struct {
	Table string `json:"table" validate:"required"`
	Head  int    `json:"head" validate:"gte=0"`
}

// Bind implements render.Binder
func (sel *Selection) Bind(r *http.Request) error {
	return validate.Struct(sel)
}

type UploadResponse struct {
	Name      string    `json:"name"`
	Rows      int       `json:"rows"`
	LoadedAt  time.Time `json:"loaded_at"`
	Tables    []string  `json:"tables"`
	Selection Selection `json:"selection"`
}

type TablesResponse struct {
	Tables    []string  `json:"tables"`
	Selection Selection `json:"selection"`
}

type HeadsResponse struct {
	Table string `json:"table"`
	Heads []int  `json:"heads"`
}

type StatisticsResponse struct {
	Dataset    string                    `json:"dataset"`
	Table      string                    `json:"table"`
	Head       int                       `json:"head,omitempty"`
	GroupBy    string                    `json:"group_by"`
	Statistics []forcelog.StatisticsView `json:"statistics"`
}

func (s *Server) Health(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, map[string]interface{}{
		"status":   "ok",
		"sessions": s.store.Len(),
	})
}

// Upload normalizes the uploaded rig log and replaces the session dataset.
// A failed upload leaves the previous dataset in place.
func (s *Server) Upload(w http.ResponseWriter, r *http.Request) {
	id := sessionID(r)
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)

	file, header, err := r.FormFile("file")
	if err != nil {
		s.metrics.Uploads.WithLabelValues("rejected").Inc()
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			render.Render(w, r, NewAPIError(http.StatusRequestEntityTooLarge, "UPLOAD_TOO_LARGE", "upload exceeds size limit", maxErr.Limit))
			return
		}
		render.Render(w, r, NewAPIError(http.StatusBadRequest, "MISSING_FILE", "multipart field \"file\" is required", err.Error()))
		return
	}
	defer file.Close()

	ext := strings.ToLower(filepath.Ext(header.Filename))
	if !uploadExtensions[ext] {
		s.metrics.Uploads.WithLabelValues("rejected").Inc()
		render.Render(w, r, NewAPIError(http.StatusBadRequest, "UNSUPPORTED_FILE", "only .csv and .txt files are accepted", header.Filename))
		return
	}

	raw, err := io.ReadAll(file)
	if err != nil {
		s.metrics.Uploads.WithLabelValues("rejected").Inc()
		s.renderError(w, r, fmt.Errorf("read upload: %w", err))
		return
	}

	ds, err := s.pipeline.Run(header.Filename, raw)
	if err != nil {
		s.metrics.Uploads.WithLabelValues("failed").Inc()
		s.logger.Warn("upload failed",
			slog.String("session_id", id),
			slog.String("name", header.Filename),
			slog.String("error", err.Error()),
		)
		s.renderError(w, r, err)
		return
	}

	sess, err := s.store.Replace(id, ds)
	if err != nil {
		s.renderError(w, r, err)
		return
	}
	s.metrics.Uploads.WithLabelValues("ok").Inc()
	s.metrics.IngestRows.Observe(float64(len(ds.Rows)))

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, UploadResponse{
		Name:      ds.Name,
		Rows:      len(ds.Rows),
		LoadedAt:  ds.LoadedAt,
		Tables:    ds.Tables(),
		Selection: Selection{Table: sess.Table, Head: sess.Head},
	})
}

func (s *Server) Tables(w http.ResponseWriter, r *http.Request) {
	sess, err := s.loadedSession(r)
	if err != nil {
		s.renderError(w, r, err)
		return
	}

	render.JSON(w, r, TablesResponse{
		Tables:    sess.Dataset.Tables(),
		Selection: Selection{Table: sess.Table, Head: sess.Head},
	})
}

func (s *Server) Heads(w http.ResponseWriter, r *http.Request) {
	sess, err := s.loadedSession(r)
	if err != nil {
		s.renderError(w, r, err)
		return
	}

	table := chi.URLParam(r, "table")
	if !sess.Dataset.HasTable(table) {
		s.renderError(w, r, fmt.Errorf("%w: table %q", session.ErrSelection, table))
		return
	}

	render.JSON(w, r, HeadsResponse{
		Table: table,
		Heads: sess.Dataset.Heads(table),
	})
}

// Select changes the session selection. A zero head selects the first head
// of the table.
func (s *Server) Select(w http.ResponseWriter, r *http.Request) {
	var sel Selection
	if err := render.Bind(r, &sel); err != nil {
		render.Render(w, r, NewAPIError(http.StatusBadRequest, "INVALID_REQUEST", "invalid selection request", err.Error()))
		return
	}

	sess, err := s.store.Select(sessionID(r), sel.Table, sel.Head)
	if err != nil {
		s.renderError(w, r, err)
		return
	}

	render.JSON(w, r, Selection{Table: sess.Table, Head: sess.Head})
}

// Statistics returns rounded group statistics of one table. Without a table
// parameter the session selection is used; a head parameter narrows the
// result to one head.
func (s *Server) Statistics(w http.ResponseWriter, r *http.Request) {
	sess, err := s.loadedSession(r)
	if err != nil {
		s.renderError(w, r, err)
		return
	}

	table, err := tableParam(r, sess)
	if err != nil {
		s.renderError(w, r, err)
		return
	}
	head, err := headParam(r.URL.Query().Get("head"))
	if err != nil {
		s.renderError(w, r, err)
		return
	}
	if head != 0 && !sess.Dataset.HasHead(table, head) {
		s.renderError(w, r, fmt.Errorf("%w: head %d of table %q", session.ErrSelection, head, table))
		return
	}

	filter := forcelog.Filter{Table: table, Head: head}
	render.JSON(w, r, StatisticsResponse{
		Dataset:    sess.Dataset.Name,
		Table:      table,
		Head:       head,
		GroupBy:    s.pipeline.GroupBy.String(),
		Statistics: s.pipeline.Views(sess.Dataset, filter),
	})
}

func (s *Server) ScatterChart(w http.ResponseWriter, r *http.Request) {
	sess, err := s.loadedSession(r)
	if err != nil {
		s.renderError(w, r, err)
		return
	}

	table, err := tableParam(r, sess)
	if err != nil {
		s.renderError(w, r, err)
		return
	}
	head, err := headParam(chi.URLParam(r, "head"))
	if err != nil {
		s.renderError(w, r, err)
		return
	}
	if !sess.Dataset.HasHead(table, head) {
		s.renderError(w, r, fmt.Errorf("%w: head %d of table %q", session.ErrSelection, head, table))
		return
	}

	s.renderChart(w, r, plot.BuildScatter(sess.Dataset.Rows, table, head))
}

// BoxChart renders the box plot of the selected or requested table and head
func (s *Server) BoxChart(w http.ResponseWriter, r *http.Request) {
	sess, err := s.loadedSession(r)
	if err != nil {
		s.renderError(w, r, err)
		return
	}

	table, err := tableParam(r, sess)
	if err != nil {
		s.renderError(w, r, err)
		return
	}
	head, err := headParam(r.URL.Query().Get("head"))
	if err != nil {
		s.renderError(w, r, err)
		return
	}
	if head == 0 {
		head = sess.Head
		if table != sess.Table {
			head = sess.Dataset.Heads(table)[0]
		}
	}
	if !sess.Dataset.HasHead(table, head) {
		s.renderError(w, r, fmt.Errorf("%w: head %d of table %q", session.ErrSelection, head, table))
		return
	}

	s.renderChart(w, r, plot.BuildBoxPlot(sess.Dataset.Rows, table, head))
}

// ExportWorkbook downloads the statistics of one table, or of every table
// without a table parameter, as an xlsx workbook
func (s *Server) ExportWorkbook(w http.ResponseWriter, r *http.Request) {
	sess, err := s.loadedSession(r)
	if err != nil {
		s.renderError(w, r, err)
		return
	}

	table := r.URL.Query().Get("table")
	if table != "" && !sess.Dataset.HasTable(table) {
		s.renderError(w, r, fmt.Errorf("%w: table %q", session.ErrSelection, table))
		return
	}

	statistics := forcelog.Aggregate(sess.Dataset.Rows, forcelog.ByTableHeadTarget, forcelog.Filter{Table: table})
	buf := new(bytes.Buffer)
	if err := forcelog.WriteWorkbook(buf, statistics, s.pipeline.Precision); err != nil {
		s.renderError(w, r, err)
		return
	}

	name := strings.TrimSuffix(sess.Dataset.Name, filepath.Ext(sess.Dataset.Name)) + ".xlsx"
	w.Header().Set("Content-Type", workbookContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.Write(buf.Bytes())
}

func (s *Server) renderChart(w http.ResponseWriter, r *http.Request, fig plot.Figure) {
	format, err := plot.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		render.Render(w, r, invalidParameter("format", err))
		return
	}

	buf := new(bytes.Buffer)
	if err := plot.Render(buf, fig, format, 0, 0); err != nil {
		s.renderError(w, r, err)
		return
	}
	s.metrics.ChartRenders.WithLabelValues(fig.Kind.String()).Inc()

	w.Header().Set("Content-Type", format.ContentType())
	w.Write(buf.Bytes())
}

func (s *Server) loadedSession(r *http.Request) (session.Session, error) {
	sess, err := s.store.Get(sessionID(r))
	if err != nil {
		return sess, err
	}
	if sess.Dataset == nil {
		return sess, session.ErrNoDataset
	}
	return sess, nil
}

func tableParam(r *http.Request, sess session.Session) (string, error) {
	table := r.URL.Query().Get("table")
	if table == "" {
		return sess.Table, nil
	}
	if !sess.Dataset.HasTable(table) {
		return "", fmt.Errorf("%w: table %q", session.ErrSelection, table)
	}
	return table, nil
}

func headParam(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	head, err := strconv.Atoi(s)
	if err != nil || head < 0 {
		return 0, invalidParameter("head", fmt.Errorf("head must be a positive integer: %q", s))
	}
	return head, nil
}
