package http

import (
	"context"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Meet/internal/adapters/signal"
	"github.com/dkeye/Meet/internal/app/orch"
	"github.com/dkeye/Meet/internal/config"
)

const (
	sessionName    = "MeetSessions"
	clientTokenKey = "client_token"
)

func genClientToken() string {
	return uuid.NewString()
}

// ClientTokenMiddleware gives every browser a stable token kept in the
// cookie session. It identifies meeting creators, not room members.
func ClientTokenMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		sess := sessions.Default(c)
		token, _ := sess.Get(clientTokenKey).(string)
		if token == "" {
			token = genClientToken()
			sess.Set(clientTokenKey, token)
			if err := sess.Save(); err != nil {
				log.Warn().Err(err).Str("module", "adapters.http").Msg("save session")
			}
		}
		c.Set(clientTokenKey, token)
		c.Next()
	}
}

func SetupRouter(ctx context.Context, cfg *config.Config, o *orch.Orchestrator) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	store := cookie.NewStore([]byte(cfg.Secret))
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   3600 * 24 * 7,
		HttpOnly: true,
	})
	r.Use(sessions.Sessions(sessionName, store))
	r.Use(ClientTokenMiddleware())

	iceServers, err := cfg.ICEServers()
	if err != nil {
		log.Error().Err(err).Str("module", "adapters.http").Msg("ice servers")
	}
	api := &API{
		Orch:       o,
		Port:       cfg.Port,
		ICEServers: iceServers,
		Started:    time.Now(),
		Now:        time.Now,
	}

	r.GET("/health", api.Health)

	g := r.Group("/api")
	g.GET("/server-info", api.ServerInfo)
	g.GET("/meetings", api.Meetings)
	g.GET("/meeting/:roomId", api.Meeting)
	g.GET("/rooms", api.Rooms)
	g.GET("/ice-servers", api.ICE)

	ctrl := signal.NewSignalWSController(o, signal.OptionsFromConfig(cfg))
	r.GET("/ws", func(c *gin.Context) {
		log.Debug().Str("module", "adapters.http").Str("client", c.GetString(clientTokenKey)).Msg("ws signal endpoint hit")
		ctrl.HandleSignal(ctx, c)
	})

	log.Info().Str("module", "adapters.http").Int("port", cfg.Port).Msg("router setup")
	return r
}
