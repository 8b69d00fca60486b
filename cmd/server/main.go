// cmd/server exposes the thin operator HTTP surface: health check,
// manual sync trigger, job and eval status. It does not serve a
// consumer-facing ranked feed.
package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	emailrepo "github.com/inboxreel/inboxreel/internal/email/repository"
	enrichrepo "github.com/inboxreel/inboxreel/internal/enrichment/repository"
	"github.com/inboxreel/inboxreel/internal/eval"
	feedbackrepo "github.com/inboxreel/inboxreel/internal/feedback/repository"
	"github.com/inboxreel/inboxreel/internal/inboxsync"
	"github.com/inboxreel/inboxreel/internal/mailsource"
	"github.com/inboxreel/inboxreel/internal/mailsource/gmail"
	"github.com/inboxreel/inboxreel/internal/queue"
	"github.com/inboxreel/inboxreel/internal/queue/pubsubqueue"
	"github.com/inboxreel/inboxreel/internal/queue/record"
	rankrepo "github.com/inboxreel/inboxreel/internal/ranker/repository"
	userrepo "github.com/inboxreel/inboxreel/internal/user/repository"
	"github.com/inboxreel/inboxreel/pkg/authtoken"
	"github.com/inboxreel/inboxreel/pkg/config"
	"github.com/inboxreel/inboxreel/pkg/cryptutil"
	"github.com/inboxreel/inboxreel/pkg/dbconn"
	"github.com/inboxreel/inboxreel/pkg/pipelineconfig"
)

func main() {
	cfg := config.Load()
	pipelineCfg, err := pipelineconfig.Load(cfg.PipelineConfigPath)
	if err != nil {
		log.Fatal("failed to load pipeline config:", err)
	}

	db, err := dbconn.NewPostgresConnection(cfg.DatabaseURL)
	if err != nil {
		log.Fatal("failed to connect to database:", err)
	}

	box, err := cryptutil.NewBox(cfg.CredentialEncryptionKey)
	if err != nil {
		log.Fatal("failed to initialize credential encryption:", err)
	}

	users := userrepo.NewUserRepository(db)
	links := emailrepo.NewLinkRepository(db)
	videoMetadata := enrichrepo.NewVideoMetadataRepository(db)
	rankings := rankrepo.NewRepository(db)
	feedback := feedbackrepo.NewRepository(db)
	ledger := record.NewRepository(db)

	policies := queue.PoliciesFromConfig(pipelineCfg)
	jobQueue, err := pubsubqueue.New(context.Background(), cfg.PubSubProjectID, policies, ledger)
	if err != nil {
		log.Fatal("failed to initialize job queue:", err)
	}

	var provider mailsource.Provider = gmail.NewProvider(cfg.GoogleClientID, cfg.GoogleClientSecret)
	synchronizer := inboxsync.New(users, provider, jobQueue, box)
	harness := eval.New(rankings, feedback, links, videoMetadata)

	issuer := authtoken.NewIssuer(cfg.JWTSecret, 12*time.Hour)
	h := &handler{users: users, synchronizer: synchronizer, ledger: ledger, harness: harness, issuer: issuer}

	gin.SetMode(gin.ReleaseMode)
	r := gin.Default()
	r.Use(corsMiddleware())
	h.setupRoutes(r)

	addr := ":" + cfg.Port
	log.Printf("[Server] listening on %s", addr)
	if err := r.Run(addr); err != nil {
		log.Fatal("server stopped:", err)
	}
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin != "" {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		} else {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		}
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

type handler struct {
	users        userrepo.UserRepository
	synchronizer *inboxsync.Synchronizer
	ledger       *record.Repository
	harness      *eval.Harness
	issuer       *authtoken.Issuer
}

func (h *handler) setupRoutes(r *gin.Engine) {
	api := r.Group("/api")
	{
		api.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
		})

		operator := api.Group("/operator")
		operator.Use(authtoken.Middleware(h.issuer))
		{
			operator.POST("/sync/:userID", h.triggerSync)
			operator.GET("/jobs/:queue", h.jobStatus)
			operator.GET("/eval/:userID", h.runEval)
		}
	}
}

func (h *handler) triggerSync(c *gin.Context) {
	userID := c.Param("userID")
	user, err := h.users.FindByID(userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if user == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		return
	}
	if err := h.synchronizer.Sync(c.Request.Context(), user); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "synced"})
}

func (h *handler) jobStatus(c *gin.Context) {
	queueName := c.Param("queue")
	summary, err := h.ledger.Summary(queueName)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	failed, err := h.ledger.RecentFailed(queueName, 20)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"summary": summary, "recent_failed": failed})
}

func (h *handler) runEval(c *gin.Context) {
	userID := c.Param("userID")
	from, to, err := parseRange(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	report, err := h.harness.Evaluate(userID, from, to, nil)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, report)
}

func parseRange(c *gin.Context) (time.Time, time.Time, error) {
	to := time.Now()
	from := to.AddDate(0, 0, -30)

	if raw := c.Query("from"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		from = parsed
	}
	if raw := c.Query("to"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		to = parsed
	}
	return from, to, nil
}
