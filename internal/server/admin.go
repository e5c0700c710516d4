package server

import (
	"html/template"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/recipeclip/recipeclip/internal/ledger"
	"github.com/recipeclip/recipeclip/internal/logger"
	"github.com/recipeclip/recipeclip/internal/version"
)

var adminTemplate = template.Must(template.New("attempts").Parse(`<!DOCTYPE html>
<html>
<head>
<title>recipeclip attempts</title>
<style>
body { font-family: sans-serif; margin: 2rem; }
table { border-collapse: collapse; width: 100%; }
th, td { border: 1px solid #ccc; padding: 0.4rem 0.6rem; text-align: left; }
th { background: #f3f3f3; }
.status-failed { color: #b00020; }
.status-not_recipe { color: #8a6d00; }
.status-running { color: #1565c0; }
footer { margin-top: 1.5rem; color: #888; font-size: 0.8rem; }
</style>
</head>
<body>
<h1>Unresolved attempts</h1>
{{if .Attempts}}
<table>
<tr><th>URL</th><th>Status</th><th>Attempts</th><th>Last error</th><th>Updated</th><th></th></tr>
{{range .Attempts}}
<tr>
<td>{{.URL}}</td>
<td class="status-{{.Status}}">{{.Status}}</td>
<td>{{.Attempts}}</td>
<td>{{.LastError}}</td>
<td>{{.UpdatedAt.Format "2006-01-02 15:04"}}</td>
<td><form method="POST" action="/admin/attempts/{{.ID}}/retry"><button type="submit">Retry</button></form></td>
</tr>
{{end}}
</table>
{{else}}
<p>No unresolved attempts.</p>
{{end}}
<footer>recipeclip {{.Version}}</footer>
</body>
</html>
`))

func (s *Server) handleAdminAttempts(c *gin.Context) {
	attempts, err := s.attempts.ListUnresolved(c.Request.Context())
	if err != nil {
		logger.Error("listing attempts failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	c.Header("Content-Type", "text/html; charset=utf-8")
	c.Status(http.StatusOK)
	err = adminTemplate.Execute(c.Writer, struct {
		Attempts []ledger.Attempt
		Version  string
	}{Attempts: attempts, Version: version.Version})
	if err != nil {
		logger.Error("rendering admin page failed", "error", err)
	}
}
