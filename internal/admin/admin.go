/*
Package admin exposes the operational surface: server status for the team
and the public contact form that relays messages to the support inbox.
*/
package admin

import (
	"fmt"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/go-gomail/gomail"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/disk"
	"github.com/shirou/gopsutil/v4/host"
	"github.com/shirou/gopsutil/v4/mem"

	"zhi-server/internal/database"
	"zhi-server/internal/utility"
)

var (
	queries   *database.Queries
	dbService database.Service
	StartTime = time.Now()
)

// ContactFormRequest is the public contact form body.
type ContactFormRequest struct {
	Name    string `json:"name" form:"name"`
	Email   string `json:"email" form:"email"`
	Message string `json:"message" form:"message"`
}

// InitAdminPackage is called by the server package to wire the database.
func InitAdminPackage(dbpool *pgxpool.Pool, svc database.Service) {
	queries = database.New(dbpool)
	dbService = svc
	log.Info().Msg("Admin package initialized.")
}

// GetServerStatusHandler collects and returns system-level metrics plus
// database pool health.
func GetServerStatusHandler(c echo.Context) error {
	v, _ := mem.VirtualMemory()

	// CPU usage calculated over 1 second
	cpuPercent, _ := cpu.Percent(time.Second, false)

	d, _ := disk.Usage("/")

	hInfo, _ := host.Info()
	uptime := time.Since(StartTime).String()

	cpuUsage := "unknown"
	if len(cpuPercent) > 0 {
		cpuUsage = fmt.Sprintf("%.2f%%", cpuPercent[0])
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"status": "online",
		"runtime": map[string]interface{}{
			"uptime":     uptime,
			"start_time": StartTime.Format(time.RFC3339),
			"os":         hInfo.OS,
			"platform":   hInfo.Platform,
			"arch":       hInfo.KernelArch,
			"hostname":   hInfo.Hostname,
		},
		"cpu": map[string]interface{}{
			"usage_percent": cpuUsage,
			"cores":         hInfo.Procs,
		},
		"memory": map[string]interface{}{
			"total_gb":     fmt.Sprintf("%.2f GB", float64(v.Total)/1024/1024/1024),
			"used_gb":      fmt.Sprintf("%.2f GB", float64(v.Used)/1024/1024/1024),
			"used_percent": fmt.Sprintf("%.2f%%", v.UsedPercent),
			"free_gb":      fmt.Sprintf("%.2f GB", float64(v.Free)/1024/1024/1024),
		},
		"disk": map[string]interface{}{
			"total_gb":     fmt.Sprintf("%.2f GB", float64(d.Total)/1024/1024/1024),
			"used_gb":      fmt.Sprintf("%.2f GB", float64(d.Used)/1024/1024/1024),
			"used_percent": fmt.Sprintf("%.2f%%", d.UsedPercent),
		},
		"database": dbService.Health(),
	})
}

// ContactFormHandler stores the message and relays it to the support inbox.
// The relay is best-effort: a mail failure does not fail the request once
// the message is stored.
func ContactFormHandler(c echo.Context) error {
	ctx := c.Request().Context()

	if err := utility.CheckIPRateLimit(utility.GetRealIP(c)); err != nil {
		return c.JSON(http.StatusTooManyRequests, map[string]string{"error": err.Error()})
	}

	var req ContactFormRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
	}

	if req.Name == "" || req.Email == "" || req.Message == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Name, email, and message are required"})
	}

	stored, err := queries.CreateContactMessage(ctx, database.CreateContactMessageParams{
		Name:  req.Name,
		Email: req.Email,
		Body:  req.Message,
	})
	if err != nil {
		log.Error().Err(err).Msg("Failed to store contact message")
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to send message"})
	}

	go func() {
		if err := relayContactEmail(req); err != nil {
			log.Warn().Err(err).Msg("Failed to relay contact message to support inbox")
		}
	}()

	return c.JSON(http.StatusCreated, map[string]interface{}{
		"message":    "Mensaje recibido. Te responderemos pronto.",
		"message_id": stored.MessageID,
	})
}

func relayContactEmail(req ContactFormRequest) error {
	smtpHost := os.Getenv("SMTP_HOST")
	smtpUser := os.Getenv("SMTP_USER")
	smtpPass := os.Getenv("SMTP_PASS")
	supportInbox := os.Getenv("SUPPORT_INBOX")

	if smtpHost == "" || smtpUser == "" || smtpPass == "" || supportInbox == "" {
		return fmt.Errorf("SMTP or SUPPORT_INBOX configuration missing")
	}

	port, err := strconv.Atoi(os.Getenv("SMTP_PORT"))
	if err != nil {
		port = 587
	}

	m := gomail.NewMessage()
	m.SetHeader("From", smtpUser)
	m.SetHeader("To", supportInbox)
	m.SetHeader("Reply-To", req.Email)
	m.SetHeader("Subject", fmt.Sprintf("Contacto Zhi: %s", req.Name))
	m.SetBody("text/plain", fmt.Sprintf("De: %s <%s>\n\n%s", req.Name, req.Email, req.Message))

	d := gomail.NewDialer(smtpHost, port, smtpUser, smtpPass)
	return d.DialAndSend(m)
}
