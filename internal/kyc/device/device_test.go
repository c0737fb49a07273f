package device

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/suite"
)

type DeviceLabelSuite struct {
	suite.Suite
}

func TestDeviceLabelSuite(t *testing.T) {
	suite.Run(t, new(DeviceLabelSuite))
}

func (s *DeviceLabelSuite) TestUserAgentParsing() {
	s.Run("empty user agent returns unknown device", func() {
		s.Equal("Unknown Device", ParseUserAgent(""))
		s.Equal("Unknown Device", ParseUserAgent("   "))
	})

	s.Run("chrome on desktop includes browser and OS", func() {
		userAgent := "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
		result := ParseUserAgent(userAgent)
		s.Contains(result, "Chrome")
		s.Contains(result, " on ")
		s.NotContains(result, "  ")
	})

	s.Run("safari on iphone includes platform", func() {
		userAgent := "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Mobile/15E148 Safari/604.1"
		result := ParseUserAgent(userAgent)
		s.Contains(result, " on ")
		s.Contains(result, "iPhone")
	})

	s.Run("android phone browser", func() {
		userAgent := "Mozilla/5.0 (Linux; Android 13; SM-A146B) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/119.0.0.0 Mobile Safari/537.36"
		result := ParseUserAgent(userAgent)
		s.Contains(result, "Android")
	})

	s.Run("unknown user agent returns formatted string", func() {
		result := ParseUserAgent("Unknown/1.0")
		s.Contains(result, " on ")
		s.NotEmpty(result)
	})

	s.Run("result has no leading or trailing whitespace", func() {
		result := ParseUserAgent("Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36")
		s.Equal(result, strings.TrimSpace(result))
	})
}
