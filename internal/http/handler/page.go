package handler

import (
	"bytes"
	"embed"
	"fmt"
	"net/http"

	"github.com/edirooss/obsdelay-server/internal/domain/delay"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

//go:embed templates/*.html
var templatesFS embed.FS

// cellView is one source on the panel.
type cellView struct {
	Name string
	// Display is "<n> ms", or "(Error)" when the delay could not be read.
	Display string
	// FormValue pre-fills the update form; 0 when the read failed.
	FormValue int64
}

// rowView pairs two sources per table row. Right is nil on an odd tail.
type rowView struct {
	Left  *cellView
	Right *cellView
}

// Index handles GET /.
//
// Behavior:
//   - Renders the panel: two sources per row, configured order, each cell
//     with the current delay and an update form.
//   - Per-source read failures render as "(Error)" cells; only a render
//     failure itself produces an error response.
//
// Status Codes:
//   - 200 OK → HTML
//   - 500 Internal Server Error → plain text
func (h *DelaysHandler) Index(c *gin.Context) {
	readings := h.svc.ListDelays(c.Request.Context(), h.sources)

	data := struct {
		Rows []rowView
	}{Rows: buildRows(readings)}

	// Render to a buffer first so a template failure can still produce
	// a clean 500 instead of a half-written page.
	var buf bytes.Buffer
	if err := h.tmpl.ExecuteTemplate(&buf, "index.html", data); err != nil {
		c.Error(err)
		h.log.Error("panel render failed", zap.Error(err))
		c.String(http.StatusInternalServerError, "internal error")
		return
	}

	c.Data(http.StatusOK, "text/html; charset=utf-8", buf.Bytes())
}

func buildRows(readings []delay.Reading) []rowView {
	rows := make([]rowView, 0, (len(readings)+1)/2)
	for i := 0; i < len(readings); i += 2 {
		row := rowView{Left: buildCell(readings[i])}
		if i+1 < len(readings) {
			row.Right = buildCell(readings[i+1])
		}
		rows = append(rows, row)
	}
	return rows
}

func buildCell(r delay.Reading) *cellView {
	cell := &cellView{Name: r.Source, Display: "(Error)"}
	if r.OK() {
		cell.Display = fmt.Sprintf("%d ms", r.DelayMS)
		cell.FormValue = r.DelayMS
	}
	return cell
}
