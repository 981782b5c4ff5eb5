package server

import (
	"context"
	"errors"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/loykin/dreamlauncher/internal/auth"
	"github.com/loykin/dreamlauncher/internal/installer"
	"github.com/loykin/dreamlauncher/internal/launcher"
	"github.com/loykin/dreamlauncher/internal/mirror"
	"github.com/loykin/dreamlauncher/internal/version"
)

// Launcher is the command surface served to the UI.
type Launcher interface {
	ProbeVersion(dir string) (version.Version, error)
	CheckVersion(ctx context.Context, dir string) (version.Status, error)
	Download(ctx context.Context, major, minor uint32) (mirror.Outcome, error)
	Install(installerPath string) (installer.Outcome, error)
	InstallerDir() string
	AcquireAndInstall(ctx context.Context, major, minor uint32) (installer.Outcome, error)
	Launch(dir, address string) (string, error)
	IsRunning() bool
	IsRunningAnywhere() bool
	Status() launcher.Status
	PublishPresence(state, details string) error
	SetLauncherActivity() error
	SetInGameActivity(server string) error
	ClearPresence()
}

var _ Launcher = (*launcher.Service)(nil)

// Router provides embeddable HTTP handlers for the launcher.
// Endpoints (relative to basePath):
//
//	GET    /version        query: install_dir (optional)
//	GET    /version/check  query: install_dir (optional)
//	POST   /download       body: {"major","minor"}
//	POST   /install        body: {"installer_path"}
//	POST   /acquire        body: {"major","minor"}
//	POST   /launch         body: {"address","install_dir"}
//	GET    /running
//	GET    /running/any
//	GET    /status
//	POST   /presence       body: {"state","details"} or {"activity","server"}
//	DELETE /presence
//
// basePath may be empty or start with '/'; no trailing slash.
//
// Every request must come without an Origin or from a loopback or allowed
// origin, POST bodies must be application/json, and when an Issuer is set a
// bearer token is required.
type Router struct {
	svc            Launcher
	basePath       string
	issuer         *auth.Issuer
	allowedOrigins []string
}

// Option configures a Router.
type Option func(*Router)

// WithAuth requires bearer tokens signed by issuer.
func WithAuth(issuer *auth.Issuer) Option {
	return func(r *Router) { r.issuer = issuer }
}

// WithAllowedOrigins admits browser origins besides loopback ones.
func WithAllowedOrigins(origins ...string) Option {
	return func(r *Router) { r.allowedOrigins = append(r.allowedOrigins, origins...) }
}

// NewRouter constructs a new Router with configurable basePath.
func NewRouter(svc Launcher, basePath string, opts ...Option) *Router {
	r := &Router{svc: svc, basePath: sanitizeBase(basePath)}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Register mounts the endpoints on an existing gin engine or group.
func (r *Router) Register(g gin.IRouter) {
	group := g.Group(r.basePath,
		originGuard(r.allowedOrigins),
		auth.NewMiddleware(r.issuer).GinAuth(),
		jsonOnly(),
	)
	group.GET("/version", r.handleVersion)
	group.GET("/version/check", r.handleVersionCheck)
	group.POST("/download", r.handleDownload)
	group.POST("/install", r.handleInstall)
	group.POST("/acquire", r.handleAcquire)
	group.POST("/launch", r.handleLaunch)
	group.GET("/running", r.handleRunning)
	group.GET("/running/any", r.handleRunningAny)
	group.GET("/status", r.handleStatus)
	group.POST("/presence", r.handlePresence)
	group.DELETE("/presence", r.handleClearPresence)
}

// Handler returns an http.Handler powered by gin that can be mounted in any server/mux.
func (r *Router) Handler() http.Handler {
	g := gin.New()
	g.Use(gin.Recovery())
	r.Register(g)
	return g
}

// NewServer returns an http.Server for this router; the caller runs
// ListenAndServe and Shutdown.
func NewServer(addr, basePath string, svc Launcher, opts ...Option) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           NewRouter(svc, basePath, opts...).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		// install waits on an interactive installer
		WriteTimeout: 0,
		IdleTimeout:  60 * time.Second,
	}
}

// --- Handlers ---

type errorResp struct {
	Error string `json:"error"`
}

type okResp struct {
	OK bool `json:"ok"`
}

type versionResp struct {
	Major   uint32 `json:"major"`
	Minor   uint32 `json:"minor"`
	Version string `json:"version"`
}

type versionReq struct {
	Major *uint32 `json:"major"`
	Minor *uint32 `json:"minor"`
}

type installReq struct {
	InstallerPath string `json:"installer_path"`
}

type launchReq struct {
	Address    string `json:"address"`
	InstallDir string `json:"install_dir"`
}

type launchResp struct {
	Message string `json:"message"`
}

type runningResp struct {
	Running bool `json:"running"`
}

type presenceReq struct {
	State    string `json:"state"`
	Details  string `json:"details"`
	Activity string `json:"activity"` // "launcher" or "in_game"
	Server   string `json:"server"`
}

// errorStatus maps the error taxonomy onto HTTP codes.
func errorStatus(err error) int {
	var dl *mirror.DownloadError
	switch {
	case errors.Is(err, os.ErrNotExist):
		return http.StatusNotFound
	case errors.Is(err, version.ErrParse), errors.Is(err, installer.ErrUnverified):
		return http.StatusUnprocessableEntity
	case errors.As(err, &dl):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (r *Router) installDirQuery(c *gin.Context) (string, bool) {
	dir := c.Query("install_dir")
	if !isSafeAbsPath(dir) {
		badRequest(c, "invalid install_dir: must be absolute path without traversal")
		return "", false
	}
	return dir, true
}

func (r *Router) handleVersion(c *gin.Context) {
	dir, ok := r.installDirQuery(c)
	if !ok {
		return
	}
	v, err := r.svc.ProbeVersion(dir)
	if err != nil {
		writeJSON(c, errorStatus(err), errorResp{Error: err.Error()})
		return
	}
	writeJSON(c, http.StatusOK, versionResp{Major: v.Major, Minor: v.Minor, Version: v.String()})
}

func (r *Router) handleVersionCheck(c *gin.Context) {
	dir, ok := r.installDirQuery(c)
	if !ok {
		return
	}
	st, err := r.svc.CheckVersion(c.Request.Context(), dir)
	if err != nil {
		writeJSON(c, http.StatusBadGateway, errorResp{Error: err.Error()})
		return
	}
	writeJSON(c, http.StatusOK, st)
}

func bindVersion(c *gin.Context) (uint32, uint32, bool) {
	var req versionReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid JSON: "+err.Error())
		return 0, 0, false
	}
	if req.Major == nil || req.Minor == nil {
		badRequest(c, "major and minor required")
		return 0, 0, false
	}
	return *req.Major, *req.Minor, true
}

func (r *Router) handleDownload(c *gin.Context) {
	major, minor, ok := bindVersion(c)
	if !ok {
		return
	}
	out, err := r.svc.Download(c.Request.Context(), major, minor)
	if err != nil {
		writeJSON(c, errorStatus(err), errorResp{Error: err.Error()})
		return
	}
	writeJSON(c, http.StatusOK, out)
}

func (r *Router) handleInstall(c *gin.Context) {
	var req installReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid JSON: "+err.Error())
		return
	}
	if req.InstallerPath == "" || !isSafeAbsPath(req.InstallerPath) {
		badRequest(c, "invalid installer_path: must be absolute path without traversal")
		return
	}
	if !isWithinDir(r.svc.InstallerDir(), req.InstallerPath) {
		writeJSON(c, http.StatusForbidden, errorResp{Error: "installer_path must be inside " + r.svc.InstallerDir()})
		return
	}
	out, err := r.svc.Install(req.InstallerPath)
	if err != nil {
		writeJSON(c, errorStatus(err), errorResp{Error: err.Error()})
		return
	}
	writeJSON(c, http.StatusOK, out)
}

func (r *Router) handleAcquire(c *gin.Context) {
	major, minor, ok := bindVersion(c)
	if !ok {
		return
	}
	out, err := r.svc.AcquireAndInstall(c.Request.Context(), major, minor)
	if err != nil {
		writeJSON(c, errorStatus(err), errorResp{Error: err.Error()})
		return
	}
	writeJSON(c, http.StatusOK, out)
}

func (r *Router) handleLaunch(c *gin.Context) {
	var req launchReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid JSON: "+err.Error())
		return
	}
	if !isValidAddress(req.Address) {
		badRequest(c, "invalid address: expected host:port")
		return
	}
	if !isSafeAbsPath(req.InstallDir) {
		badRequest(c, "invalid install_dir: must be absolute path without traversal")
		return
	}
	msg, err := r.svc.Launch(req.InstallDir, req.Address)
	if err != nil {
		writeJSON(c, errorStatus(err), errorResp{Error: err.Error()})
		return
	}
	writeJSON(c, http.StatusOK, launchResp{Message: msg})
}

func (r *Router) handleRunning(c *gin.Context) {
	writeJSON(c, http.StatusOK, runningResp{Running: r.svc.IsRunning()})
}

func (r *Router) handleRunningAny(c *gin.Context) {
	writeJSON(c, http.StatusOK, runningResp{Running: r.svc.IsRunningAnywhere()})
}

func (r *Router) handleStatus(c *gin.Context) {
	writeJSON(c, http.StatusOK, r.svc.Status())
}

// handlePresence answers 503 when the update did not happen; clients may
// ignore it.
func (r *Router) handlePresence(c *gin.Context) {
	var req presenceReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid JSON: "+err.Error())
		return
	}
	var err error
	switch req.Activity {
	case "":
		if req.State == "" {
			badRequest(c, "state or activity required")
			return
		}
		err = r.svc.PublishPresence(req.State, req.Details)
	case "launcher":
		err = r.svc.SetLauncherActivity()
	case "in_game":
		err = r.svc.SetInGameActivity(req.Server)
	default:
		badRequest(c, "unknown activity "+strconv.Quote(req.Activity))
		return
	}
	if err != nil {
		writeJSON(c, http.StatusServiceUnavailable, errorResp{Error: err.Error()})
		return
	}
	writeJSON(c, http.StatusOK, okResp{OK: true})
}

func (r *Router) handleClearPresence(c *gin.Context) {
	r.svc.ClearPresence()
	writeJSON(c, http.StatusOK, okResp{OK: true})
}
