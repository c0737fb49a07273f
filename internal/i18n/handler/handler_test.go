package handler

import (
	"io"
	"log/slog"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"bharatkyc/internal/i18n"
	"bharatkyc/internal/i18n/store"
	"bharatkyc/pkg/platform/middleware/device"
	"bharatkyc/pkg/testutil"
)

type HandlerSuite struct {
	suite.Suite
	router chi.Router
	store  *store.InMemory
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) SetupTest() {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s.store = store.NewInMemory()
	svc := i18n.NewService(i18n.MustLoad(), s.store, logger)

	s.router = chi.NewRouter()
	s.router.Use(device.Middleware(false))
	New(svc, logger).Register(s.router)
}

func (s *HandlerSuite) TestListLocales() {
	s.Run("negotiates from accept-language", func() {
		req := testutil.NewJSONRequest(s.T(), http.MethodGet, "/i18n/locales", nil)
		req.Header.Set("Accept-Language", "te-IN,te;q=0.9")
		rr := testutil.DoRequest(s.router, req)

		s.Equal(http.StatusOK, rr.Code)
		resp := testutil.UnmarshalResponse[localesResponse](s.T(), rr)
		s.Equal(i18n.Telugu, resp.Current)
		s.Len(resp.Languages, 6)
		s.Equal("हिंदी", resp.Languages[1].NativeName)
	})

	s.Run("explicit query wins", func() {
		req := testutil.NewJSONRequest(s.T(), http.MethodGet, "/i18n/locales?lng=mr", nil)
		req.Header.Set("Accept-Language", "te")
		resp := testutil.UnmarshalResponse[localesResponse](s.T(), testutil.DoRequest(s.router, req))
		s.Equal(i18n.Marathi, resp.Current)
	})
}

func (s *HandlerSuite) TestGetLocale() {
	s.Run("returns merged table", func() {
		rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodGet, "/i18n/locales/ta", nil))
		s.Equal(http.StatusOK, rr.Code)
		resp := testutil.UnmarshalResponse[tableResponse](s.T(), rr)
		s.Equal("தொடரவும்", resp.Messages["common.continue"])
		s.Equal("Face Verification", resp.Messages["kyc.faceVerification.title"])
	})

	s.Run("unknown locale is 404", func() {
		rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodGet, "/i18n/locales/de", nil))
		s.Equal(http.StatusNotFound, rr.Code)
	})
}

func (s *HandlerSuite) TestSetPreference() {
	s.Run("stores preference for the device cookie", func() {
		rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodPut, "/i18n/preference", map[string]string{"locale": "hi"}))
		s.Require().Equal(http.StatusOK, rr.Code)

		cookies := rr.Result().Cookies()
		s.Require().NotEmpty(cookies)
		s.Equal(device.CookieName, cookies[0].Name)

		follow := testutil.NewJSONRequest(s.T(), http.MethodGet, "/i18n/locales", nil)
		follow.AddCookie(cookies[0])
		resp := testutil.UnmarshalResponse[localesResponse](s.T(), testutil.DoRequest(s.router, follow))
		s.Equal(i18n.Hindi, resp.Current)
	})

	s.Run("rejects unsupported locale", func() {
		rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodPut, "/i18n/preference", map[string]string{"locale": "xx"}))
		s.Equal(http.StatusBadRequest, rr.Code)
	})
}

func TestRegister_Routes(t *testing.T) {
	r := chi.NewRouter()
	New(nil, slog.New(slog.NewTextHandler(io.Discard, nil))).Register(r)

	var routes []string
	err := chi.Walk(r, func(method, route string, _ http.Handler, _ ...func(http.Handler) http.Handler) error {
		routes = append(routes, method+" "+route)
		return nil
	})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{
		"GET /i18n/locales",
		"GET /i18n/locales/{locale}",
		"PUT /i18n/preference",
	}, routes)
}
