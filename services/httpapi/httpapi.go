// Package httpapi exposes the climate control surface over HTTP.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"yorkir-go/bus"
	"yorkir-go/errcode"
	"yorkir-go/services/climate"
	"yorkir-go/services/dumpstore"
	"yorkir-go/types"
	"yorkir-go/x/logx"
)

// DumpHistory is the persisted dump log.
type DumpHistory interface {
	Recent(n int) ([]dumpstore.DumpRecord, error)
}

type Handler struct {
	cli     *climate.Client
	history DumpHistory
}

func NewHandler(conn *bus.Connection) *Handler {
	return &Handler{cli: climate.NewClient(conn)}
}

// WithHistory serves GET /climate/dumps from hist.
func (h *Handler) WithHistory(hist DumpHistory) *Handler {
	h.history = hist
	return h
}

// NewRouter builds the gin engine for h.
func NewRouter(h *Handler) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), requestLog())

	g := r.Group("/climate")
	{
		g.GET("", h.State)
		g.POST("/command", h.Command)
		g.POST("/power/:action", h.Power)
		g.GET("/dump", h.Dump)
		g.GET("/dumps", h.Dumps)
		g.GET("/traits", h.Traits)
	}
	return r
}

func (h *Handler) State(c *gin.Context) {
	st, err := h.cli.State(c.Request.Context())
	respond(c, st, err)
}

func (h *Handler) Command(c *gin.Context) {
	var set types.ClimateSet
	if err := c.ShouldBindJSON(&set); err != nil {
		respond(c, nil, errcode.Wrap(errcode.InvalidPayload, "http.command", err))
		return
	}
	st, err := h.cli.Set(c.Request.Context(), set)
	respond(c, st, err)
}

var powerVerbs = map[string]string{
	"on":     climate.CtrlForceOn,
	"off":    climate.CtrlForceOff,
	"toggle": climate.CtrlToggle,
}

func (h *Handler) Power(c *gin.Context) {
	verb, ok := powerVerbs[c.Param("action")]
	if !ok {
		respond(c, nil, errcode.New(errcode.InvalidParams, "http.power", "action must be on, off or toggle"))
		return
	}
	st, err := h.cli.Power(c.Request.Context(), verb)
	respond(c, st, err)
}

func (h *Handler) Dump(c *gin.Context) {
	d, err := h.cli.Dump(c.Request.Context())
	respond(c, d, err)
}

type dumpsQuery struct {
	N int `form:"n" binding:"omitempty,min=1,max=500"`
}

// Dumps lists stored dumps, newest first (default 10).
func (h *Handler) Dumps(c *gin.Context) {
	if h.history == nil {
		respond(c, nil, errcode.New(errcode.Unsupported, "http.dumps", "dump history disabled"))
		return
	}
	q := dumpsQuery{N: 10}
	if err := c.ShouldBindQuery(&q); err != nil {
		respond(c, nil, errcode.Wrap(errcode.InvalidParams, "http.dumps", err))
		return
	}
	recs, err := h.history.Recent(q.N)
	respond(c, recs, err)
}

func (h *Handler) Traits(c *gin.Context) {
	tr, err := h.cli.Traits(c.Request.Context())
	respond(c, tr, err)
}

func respond(c *gin.Context, v any, err error) {
	if err != nil {
		code := errcode.Of(err)
		c.JSON(httpStatus(code), types.Reply{OK: false, Code: string(code), Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, types.Reply{OK: true, Value: v})
}

func httpStatus(c errcode.Code) int {
	switch c {
	case errcode.InvalidPayload, errcode.InvalidParams, errcode.OutOfRange:
		return http.StatusBadRequest
	case errcode.Unsupported, errcode.UnsupportedCommand:
		return http.StatusUnprocessableEntity
	case errcode.NotReady, errcode.LinkDown, errcode.TransmitFailed, errcode.Busy:
		return http.StatusServiceUnavailable
	case errcode.Timeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func requestLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logx.Debug("http: %s %s %d %s", c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(start))
	}
}

// Serve runs the API on addr until ctx is cancelled.
func Serve(ctx context.Context, addr string, h http.Handler) error {
	srv := &http.Server{Addr: addr, Handler: h, ReadHeaderTimeout: 5 * time.Second}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	logx.Info("http: listening on %s", addr)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		sctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := srv.Shutdown(sctx); err != nil {
			return err
		}
		if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}
