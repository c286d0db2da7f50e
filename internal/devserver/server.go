// Package devserver is a local implementation of the recognition service HTTP
// contract, used for end-to-end tests and offline development.
package devserver

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/example/viewlulu/internal/logging"
)

const (
	// MaxUploadSize caps each uploaded photo.
	MaxUploadSize = 10 << 20
	// MaxRequestSize caps a whole multipart body.
	MaxRequestSize = 4*MaxUploadSize + 1<<20
)

// Options configures a Server.
type Options struct {
	Secret     string
	TokenTTL   time.Duration
	BcryptCost int
	Logger     *zap.Logger
	Now        func() time.Time
}

// Server holds the in-memory catalog and user accounts.
type Server struct {
	catalog *catalog
	tokens  *issuer
	logger  *zap.Logger
	now     func() time.Time
}

func New(opts Options) *Server {
	if opts.TokenTTL <= 0 {
		opts.TokenTTL = 24 * time.Hour
	}
	if opts.BcryptCost == 0 {
		opts.BcryptCost = bcrypt.DefaultCost
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Server{
		catalog: newCatalog(opts.BcryptCost, opts.Now),
		tokens:  newIssuer(opts.Secret, opts.TokenTTL),
		logger:  logging.OrNop(opts.Logger).Named("devserver"),
		now:     opts.Now,
	}
}

// Handler returns a gin engine with every route registered.
func (s *Server) Handler() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), s.requestLogger())
	router.MaxMultipartMemory = MaxUploadSize
	s.RegisterRoutes(router)
	return router
}

// RegisterRoutes wires the HTTP handlers to the Gin router.
func (s *Server) RegisterRoutes(router *gin.Engine) {
	optional := s.tokens.authenticate(false)
	required := s.tokens.authenticate(true)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	router.POST("/auth/register", s.handleRegister)
	router.POST("/auth/login", s.handleLogin)

	router.POST("/cosmetics/detect", optional, s.handleDetect)
	router.POST("/cosmetics", optional, s.handleRegisterSingle)
	router.POST("/cosmetics/bulk", required, s.handleRegisterBulk)
	router.GET("/cosmetics/me", required, s.handleListMine)
	router.GET("/cosmetics/:id", required, s.handleGetCosmetic)

	router.GET("/photos/*key", s.handlePhoto)
}

type registerBody struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Age      int    `json:"age"`
	Gender   string `json:"gender"`
}

func (s *Server) handleRegister(c *gin.Context) {
	var body registerBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid JSON body"})
		return
	}
	if strings.TrimSpace(body.Email) == "" || body.Password == "" {
		c.JSON(http.StatusBadRequest, gin.H{"message": "email and password are required"})
		return
	}

	u, err := s.catalog.addUser(strings.TrimSpace(body.Name), body.Email, body.Password, body.Age, body.Gender)
	if errors.Is(err, errEmailTaken) {
		c.JSON(http.StatusConflict, gin.H{"message": err.Error()})
		return
	}
	if err != nil {
		s.logger.Error("failed to create user", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"message": "failed to create user"})
		return
	}
	c.JSON(http.StatusCreated, userJSON(u))
}

func (s *Server) handleLogin(c *gin.Context) {
	var body struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid JSON body"})
		return
	}

	u, err := s.catalog.authenticate(body.Email, body.Password)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"message": err.Error()})
		return
	}
	token, err := s.tokens.sign(strconv.FormatInt(u.ID, 10), s.now())
	if err != nil {
		s.logger.Error("failed to sign token", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"message": "failed to issue token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token, "user": userJSON(u)})
}

func (s *Server) handleDetect(c *gin.Context) {
	photos, ok := s.readPhotos(c, "photo")
	if !ok {
		return
	}
	if len(photos) != 1 {
		c.JSON(http.StatusBadRequest, gin.H{"message": "exactly one photo is required"})
		return
	}

	item, found := s.catalog.match(photos[0].Data)
	if !found {
		c.JSON(http.StatusOK, gin.H{})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"detectedId":   item.ID,
		"bestDistance": 0,
		"top5":         []gin.H{{"candidateId": item.ID, "score": 1}},
		"source":       "hash",
	})
}

func (s *Server) handleRegisterSingle(c *gin.Context) {
	owner, ok := s.currentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "login required to store photos"})
		return
	}
	photos, ok := s.readPhotos(c, "photo")
	if !ok {
		return
	}
	if len(photos) != 1 {
		c.JSON(http.StatusBadRequest, gin.H{"message": "exactly one photo is required"})
		return
	}

	name := strings.TrimSpace(c.PostForm("name"))
	if name == "" {
		name = photos[0].OriginalName
	}
	item := s.catalog.addCosmetic(owner.ID, name, photos)
	c.JSON(http.StatusCreated, recordJSON(item))
}

func (s *Server) handleRegisterBulk(c *gin.Context) {
	owner, ok := s.currentUser(c)
	if !ok {
		unauthorized(c, "unknown user")
		return
	}
	photos, ok := s.readPhotos(c, "photo", "photos")
	if !ok {
		return
	}
	name := strings.TrimSpace(c.PostForm("name"))
	if name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"message": "name is required"})
		return
	}
	if len(photos) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"message": "at least one photo is required"})
		return
	}

	item := s.catalog.addCosmetic(owner.ID, name, photos)
	s.logger.Info("cosmetic registered", zap.Int64("id", item.ID), zap.Int("photos", len(photos)))
	c.JSON(http.StatusCreated, recordJSON(item))
}

func (s *Server) handleListMine(c *gin.Context) {
	owner, ok := s.currentUser(c)
	if !ok {
		unauthorized(c, "unknown user")
		return
	}
	items := s.catalog.listByOwner(owner.ID)
	out := make([]gin.H, 0, len(items))
	for _, item := range items {
		thumbnail := ""
		if len(item.Photos) > 0 {
			thumbnail = item.Photos[0].Key
		}
		out = append(out, gin.H{
			"id":        item.ID,
			"name":      item.Name,
			"thumbnail": thumbnail,
			"createdAt": item.CreatedAt,
		})
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) handleGetCosmetic(c *gin.Context) {
	owner, ok := s.currentUser(c)
	if !ok {
		unauthorized(c, "unknown user")
		return
	}
	item, err := s.catalog.get(owner.ID, c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, recordJSON(item))
}

func (s *Server) handlePhoto(c *gin.Context) {
	photo, ok := s.catalog.photo(c.Param("key"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"message": "photo not found"})
		return
	}
	c.Data(http.StatusOK, photo.MIMEType, photo.Data)
}

func (s *Server) currentUser(c *gin.Context) (*user, bool) {
	subject, ok := GetUserID(c.Request.Context())
	if !ok {
		return nil, false
	}
	return s.catalog.userByID(subject)
}

// readPhotos collects the image parts under fields, writing the error response itself when it fails.
func (s *Server) readPhotos(c *gin.Context, fields ...string) ([]incomingPhoto, bool) {
	if c.ContentType() != "multipart/form-data" {
		c.JSON(http.StatusUnsupportedMediaType, gin.H{"message": "multipart/form-data body required"})
		return nil, false
	}
	if c.Request.ContentLength > MaxRequestSize {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"message": "request too large"})
		return nil, false
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, MaxRequestSize)

	form, err := c.MultipartForm()
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"message": "request too large"})
			return nil, false
		}
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid multipart body"})
		return nil, false
	}

	var photos []incomingPhoto
	for _, field := range fields {
		for _, header := range form.File[field] {
			if header.Size > MaxUploadSize {
				c.JSON(http.StatusRequestEntityTooLarge, gin.H{"message": "photo too large"})
				return nil, false
			}
			mimeType := header.Header.Get("Content-Type")
			if !strings.HasPrefix(mimeType, "image/") {
				c.JSON(http.StatusUnsupportedMediaType, gin.H{"message": "photos must be images"})
				return nil, false
			}

			src, err := header.Open()
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"message": "unable to open photo"})
				return nil, false
			}
			data, err := io.ReadAll(src)
			src.Close()
			if err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"message": "failed to read photo"})
				return nil, false
			}
			photos = append(photos, incomingPhoto{OriginalName: header.Filename, MIMEType: mimeType, Data: data})
		}
	}
	return photos, true
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Info("request handled",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("request_id", c.GetHeader("X-Request-ID")),
		)
	}
}

func userJSON(u *user) gin.H {
	return gin.H{"id": u.ID, "email": u.Email, "name": u.Name}
}

func recordJSON(item *storedCosmetic) gin.H {
	photos := make([]gin.H, 0, len(item.Photos))
	for _, p := range item.Photos {
		photos = append(photos, gin.H{
			"storageKey":   p.Key,
			"originalName": p.OriginalName,
			"mimeType":     p.MIMEType,
		})
	}
	return gin.H{
		"id":        item.ID,
		"name":      item.Name,
		"createdAt": item.CreatedAt,
		"photos":    photos,
	}
}
