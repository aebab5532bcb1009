package survey

import (
	"fmt"
	"strings"

	"github.com/voicetel/freescout-nps/internal/models"
)

// SurveyURL builds the public link a recipient clicks to answer.
func SurveyURL(baseURL, token string) string {
	return strings.TrimRight(baseURL, "/") + "/nps/survey/" + token
}

// BuildEmailBody renders the branded survey email: the configured question
// over a row of 0-10 score buttons, each pre-filling its score via the
// survey link. Button colors follow the NPS bands.
func BuildEmailBody(cfg models.Settings, surveyURL string) string {
	var b strings.Builder

	b.WriteString(`<div style="font-family: sans-serif; max-width: 600px; margin: 0 auto; padding: 20px;">` + "\n")

	if cfg.Branding.LogoURL != "" {
		fmt.Fprintf(&b, `<div style="text-align: center; margin-bottom: 20px;"><img src=%q alt="Logo" style="max-height: 48px;"></div>`+"\n",
			cfg.Branding.LogoURL)
	}

	fmt.Fprintf(&b, `<h2 style="text-align: center; color: #333;">%s</h2>`+"\n", cfg.Question)
	b.WriteString(`<p style="text-align: center; color: #666; margin-bottom: 24px;">Click a number below to rate your experience:</p>` + "\n")
	b.WriteString(`<div style="text-align: center;">` + "\n")

	for i := 0; i <= 10; i++ {
		fmt.Fprintf(&b,
			`<a href="%s?score=%d" style="display: inline-block; width: 36px; height: 36px; line-height: 36px; text-align: center; margin: 2px; border-radius: 6px; background: %s; color: #fff; text-decoration: none; font-weight: 600;">%d</a>`+"\n",
			surveyURL, i, scoreColor(i), i)
	}

	b.WriteString("</div>\n")
	b.WriteString(`<p style="text-align: center; margin-top: 12px; font-size: 12px; color: #999;">0 = Not likely &nbsp;&nbsp; 10 = Extremely likely</p>` + "\n")
	b.WriteString("</div>")

	return b.String()
}

func scoreColor(score int) string {
	switch {
	case score >= 9:
		return "#22c55e"
	case score >= 7:
		return "#eab308"
	default:
		return "#ef4444"
	}
}
