package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"bharatkyc/internal/i18n"
	localestore "bharatkyc/internal/i18n/store"
	jwttoken "bharatkyc/internal/jwt_token"
	"bharatkyc/internal/kyc/document"
	"bharatkyc/internal/kyc/otp"
	"bharatkyc/internal/kyc/service"
	"bharatkyc/internal/kyc/store"
	id "bharatkyc/pkg/domain"
	"bharatkyc/pkg/platform/httputil"
	"bharatkyc/pkg/platform/middleware/device"
	"bharatkyc/pkg/testutil"
)

type HandlerSuite struct {
	suite.Suite
	router  chi.Router
	handler *Handler
	svc     *service.Service
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) SetupTest() {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	catalog := i18n.MustLoad()
	locales := i18n.NewService(catalog, localestore.NewInMemory(), logger)
	s.svc = service.New(store.NewInMemory[*service.Session](30*time.Minute), catalog, logger,
		service.WithOTPGenerator(otp.GeneratorFunc(func() (string, error) { return "424242", nil })),
		service.WithFaceIncrement(func() int { return 50 }),
		service.WithReplyDelay(0),
		service.WithFaceTickInterval(0),
	)
	jwt := jwttoken.NewJWTService("test-signing-key", "bharat-kyc", "bharat-kyc-web")

	s.handler = New(s.svc, catalog, locales, jwt, jwttoken.NewJWTServiceAdapter(jwt), time.Hour, logger)
	s.router = chi.NewRouter()
	s.router.Use(device.Middleware(false))
	s.handler.Register(s.router)
}

type createdSession struct {
	Token     string `json:"token"`
	TokenType string `json:"token_type"`
	SessionID string `json:"session_id"`
	Step      string `json:"step"`
	Locale    string `json:"locale"`
}

type stepBody struct {
	Step   string           `json:"step"`
	Notice *httputil.Notice `json:"notice"`
	Upload *struct {
		Active string `json:"active"`
		Slots  []struct {
			Type     string `json:"type"`
			Uploaded bool   `json:"uploaded"`
		} `json:"slots"`
	} `json:"document_upload"`
}

func (s *HandlerSuite) createSession(acceptLanguage string) string {
	req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/sessions", nil)
	if acceptLanguage != "" {
		req.Header.Set("Accept-Language", acceptLanguage)
	}
	rr := testutil.DoRequest(s.router, req)
	s.Require().Equal(http.StatusCreated, rr.Code, rr.Body.String())
	resp := testutil.UnmarshalResponse[createdSession](s.T(), rr)
	s.Require().NotEmpty(resp.Token)
	s.Equal("Bearer", resp.TokenType)
	s.Equal("home", resp.Step)
	return resp.Token
}

func (s *HandlerSuite) do(token, method, path string, body any) *httptest.ResponseRecorder {
	req := testutil.WithBearer(testutil.NewJSONRequest(s.T(), method, path, body), token)
	return testutil.DoRequest(s.router, req)
}

func (s *HandlerSuite) TestSessionRoutesRequireToken() {
	rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodGet, "/session", nil))
	testutil.AssertStatusAndError(s.T(), rr, http.StatusUnauthorized, "unauthorized")

	rr = s.do("not-a-token", http.MethodGet, "/session", nil)
	testutil.AssertStatusAndError(s.T(), rr, http.StatusUnauthorized, "unauthorized")
}

func (s *HandlerSuite) TestCreateSessionNegotiatesLocale() {
	req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/sessions", nil)
	req.Header.Set("Accept-Language", "hi-IN,hi;q=0.9")
	rr := testutil.DoRequest(s.router, req)
	s.Require().Equal(http.StatusCreated, rr.Code)
	resp := testutil.UnmarshalResponse[createdSession](s.T(), rr)
	s.Equal("hi", resp.Locale)
}

func (s *HandlerSuite) TestDocumentFlow() {
	token := s.createSession("")

	rr := s.do(token, http.MethodPost, "/session/navigate", navigateRequest{Path: "/kyc/start"})
	s.Require().Equal(http.StatusOK, rr.Code, rr.Body.String())
	rr = s.do(token, http.MethodPost, "/kyc/start", methodRequest{Method: "document"})
	s.Require().Equal(http.StatusOK, rr.Code, rr.Body.String())
	s.Equal("document_upload", testutil.UnmarshalResponse[stepBody](s.T(), rr).Step)

	s.Run("wrong step view", func() {
		rr := s.do(token, http.MethodGet, "/kyc/otp", nil)
		testutil.AssertStatusAndError(s.T(), rr, http.StatusConflict, "invalid_state")
	})

	s.Run("unsupported media carries a localized notice", func() {
		req := testutil.NewFileUploadRequest(s.T(), "/kyc/document-upload/aadhaarFront", "a.gif", "image/gif", []byte("GIF89a"))
		rr := testutil.DoRequest(s.router, testutil.WithBearer(req, token))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusUnsupportedMediaType, "unsupported_media_type")
		var body httputil.ErrorResponse
		s.Require().NoError(jsonDecode(rr.Body, &body))
		s.Require().NotNil(body.Notice)
		s.Equal("Invalid File Type", body.Notice.Title)
		s.Equal("Only JPG, PNG, and PDF files are allowed.", body.Notice.Description)
	})

	s.Run("oversized upload", func() {
		data := bytes.Repeat([]byte{0}, document.MaxFileSize+2*multipartOverhead)
		req := testutil.NewFileUploadRequest(s.T(), "/kyc/document-upload/pan", "big.pdf", document.MediaPDF, data)
		rr := testutil.DoRequest(s.router, testutil.WithBearer(req, token))
		s.Equal(http.StatusRequestEntityTooLarge, rr.Code)
		var body httputil.ErrorResponse
		s.Require().NoError(jsonDecode(rr.Body, &body))
		s.Require().NotNil(body.Notice)
		s.Equal("File Too Large", body.Notice.Title)
		s.Equal("Maximum file size is 5MB", body.Notice.Description)
	})

	s.Run("accepted upload", func() {
		req := testutil.NewFileUploadRequest(s.T(), "/kyc/document-upload/aadhaarFront", "a.pdf", document.MediaPDF, []byte("%PDF-1.4"))
		rr := testutil.DoRequest(s.router, testutil.WithBearer(req, token))
		s.Require().Equal(http.StatusOK, rr.Code, rr.Body.String())
		resp := testutil.UnmarshalResponse[stepBody](s.T(), rr)
		s.Require().NotNil(resp.Upload)
		s.True(resp.Upload.Slots[0].Uploaded)
		s.Equal("aadhaarBack", resp.Upload.Active)
	})

	s.Run("submit", func() {
		rr := s.do(token, http.MethodPost, "/kyc/document-upload/submit", nil)
		s.Require().Equal(http.StatusOK, rr.Code, rr.Body.String())
		s.Equal("face_verification", testutil.UnmarshalResponse[stepBody](s.T(), rr).Step)
	})
}

func (s *HandlerSuite) TestOTPAndFaceFlow() {
	token := s.createSession("")
	s.Require().Equal(http.StatusOK, s.do(token, http.MethodPost, "/session/navigate", navigateRequest{Path: "/kyc/start"}).Code)
	s.Require().Equal(http.StatusOK, s.do(token, http.MethodPost, "/kyc/start", methodRequest{Method: "aadhaar"}).Code)

	s.Run("invalid phone", func() {
		rr := s.do(token, http.MethodPost, "/kyc/otp/send", sendOTPRequest{Phone: "98765"})
		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, "validation_error")
	})

	s.Run("send echoes the code", func() {
		rr := s.do(token, http.MethodPost, "/kyc/otp/send", sendOTPRequest{Phone: "9876543210"})
		s.Require().Equal(http.StatusOK, rr.Code, rr.Body.String())
		resp := testutil.UnmarshalResponse[stepBody](s.T(), rr)
		s.Require().NotNil(resp.Notice)
		s.Equal("OTP sent successfully", resp.Notice.Title)
		s.Equal("OTP: 424242", resp.Notice.Description)
	})

	s.Run("verify", func() {
		rr := s.do(token, http.MethodPost, "/kyc/otp/verify", verifyOTPRequest{Code: "424242"})
		s.Require().Equal(http.StatusOK, rr.Code, rr.Body.String())
		resp := testutil.UnmarshalResponse[stepBody](s.T(), rr)
		s.Equal("face_verification", resp.Step)
		s.Equal("success", resp.Notice.Status)
	})

	s.Run("denied camera", func() {
		rr := s.do(token, http.MethodPost, "/kyc/face-verification/camera", cameraRequest{Permission: "denied"})
		testutil.AssertStatusAndError(s.T(), rr, http.StatusForbidden, "permission_denied")
	})

	s.Run("frame before camera", func() {
		req := httptest.NewRequest(http.MethodPost, "/kyc/face-verification/frame", strings.NewReader("jpeg"))
		req.Header.Set("Content-Type", "image/jpeg")
		rr := testutil.DoRequest(s.router, testutil.WithBearer(req, token))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusConflict, "invalid_state")
	})

	s.Run("granted camera accepts frames", func() {
		rr := s.do(token, http.MethodPost, "/kyc/face-verification/camera", cameraRequest{Permission: "available"})
		s.Require().Equal(http.StatusOK, rr.Code, rr.Body.String())

		req := httptest.NewRequest(http.MethodPost, "/kyc/face-verification/frame", strings.NewReader("jpeg"))
		req.Header.Set("Content-Type", "image/jpeg")
		rr = testutil.DoRequest(s.router, testutil.WithBearer(req, token))
		s.Equal(http.StatusNoContent, rr.Code)
	})

	s.Run("complete before processing finishes", func() {
		rr := s.do(token, http.MethodPost, "/kyc/face-verification/complete", nil)
		testutil.AssertStatusAndError(s.T(), rr, http.StatusConflict, "invalid_state")
	})

	s.Run("receipt outside success", func() {
		rr := s.do(token, http.MethodGet, "/kyc/success/receipt", nil)
		testutil.AssertStatusAndError(s.T(), rr, http.StatusConflict, "invalid_state")
	})
}

func (s *HandlerSuite) TestAssistant() {
	token := s.createSession("hi")

	rr := s.do(token, http.MethodPost, "/assistant/toggle", nil)
	s.Require().Equal(http.StatusOK, rr.Code, rr.Body.String())
	s.Contains(rr.Body.String(), "Bharat KYC")

	rr = s.do(token, http.MethodPost, "/assistant/messages", messageRequest{Text: "namaste"})
	s.Require().Equal(http.StatusOK, rr.Code, rr.Body.String())
	s.Contains(rr.Body.String(), `"activity":"idle"`)

	s.Run("listening without recognition support", func() {
		rr := s.do(token, http.MethodPost, "/assistant/listen", nil)
		s.Equal(http.StatusServiceUnavailable, rr.Code)
		var body httputil.ErrorResponse
		s.Require().NoError(jsonDecode(rr.Body, &body))
		s.Require().NotNil(body.Notice)
		s.NotEqual("sahayak.errors.notSupported", body.Notice.Title, "notice is localized")
	})

	s.Run("voice error notice", func() {
		rr := s.do(token, http.MethodPost, "/assistant/voice/error", voiceErrorRequest{Kind: "recognition"})
		s.Require().Equal(http.StatusOK, rr.Code, rr.Body.String())
		s.Contains(rr.Body.String(), `"notice"`)
	})
}

func (s *HandlerSuite) TestShell() {
	token := s.createSession("")

	rr := s.do(token, http.MethodGet, "/shell?width=500", nil)
	s.Require().Equal(http.StatusOK, rr.Code)
	s.Contains(rr.Body.String(), `"font_size_px":15`)

	rr = s.do(token, http.MethodGet, "/shell?width=wide", nil)
	testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, "validation_error")

	rr = s.do(token, http.MethodPost, "/shell/accessibility", accessibilityRequest{Action: "decrease_text", Width: 500})
	s.Require().Equal(http.StatusOK, rr.Code)
	s.Contains(rr.Body.String(), `"font_size_px":14`)
}

func (s *HandlerSuite) TestEndSession() {
	token := s.createSession("")
	s.Equal(http.StatusNoContent, s.do(token, http.MethodDelete, "/session", nil).Code)

	rr := s.do(token, http.MethodGet, "/session", nil)
	testutil.AssertStatusAndError(s.T(), rr, http.StatusNotFound, "not_found")
}

func jsonDecode(r io.Reader, v any) error {
	return json.NewDecoder(r).Decode(v)
}

func (s *HandlerSuite) TestGetSessionFromContext() {
	view, err := s.svc.Create(context.Background(), id.NewDeviceID(), "test-agent", i18n.English)
	s.Require().NoError(err)

	req := testutil.WithSessionID(httptest.NewRequest(http.MethodGet, "/session", nil), view.SessionID)
	rr := httptest.NewRecorder()
	s.handler.handleGetSession(rr, req)
	s.Require().Equal(http.StatusOK, rr.Code, rr.Body.String())
	s.Equal("home", testutil.UnmarshalResponse[stepBody](s.T(), rr).Step)

	req = testutil.WithSessionID(httptest.NewRequest(http.MethodGet, "/session", nil), uuid.NewString())
	rr = httptest.NewRecorder()
	s.handler.handleGetSession(rr, req)
	testutil.AssertStatusAndError(s.T(), rr, http.StatusNotFound, "not_found")
}
