package mailer

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/url"
	"time"
)

//go:embed templates/*.html
var templateFS embed.FS

// テンプレート名
const (
	TemplateConfirmation = "confirmation"
	TemplateLaunchEve    = "launch_eve"
)

// subjects はテンプレートごとの件名。
var subjects = map[string]string{
	TemplateConfirmation: "🚀 %s Launch Reminder Set!",
	TemplateLaunchEve:    "⏰ %s launches tomorrow!",
}

// eat は東アフリカ時間。ローンチ日時の表記に使用する。
var eat = time.FixedZone("EAT", 3*60*60)

// Brand はメール本文に埋め込むブランド情報。
type Brand struct {
	Name         string
	Tagline      string
	SiteURL      string
	AssetsURL    string
	LiveURL      string
	ContactEmail string
	LaunchAt     time.Time
}

// DefaultBrand はFEBEX Groupのブランド情報を返す。
func DefaultBrand(launchAt time.Time, liveURL, contactEmail string) Brand {
	return Brand{
		Name:         "FEBEX Group",
		Tagline:      "Building Trust, Growth and Collaboration",
		SiteURL:      "https://febexgroup.com",
		AssetsURL:    "https://febexgroup.netlify.app",
		LiveURL:      liveURL,
		ContactEmail: contactEmail,
		LaunchAt:     launchAt,
	}
}

// templateData はテンプレートに渡す値。
type templateData struct {
	BrandName    string
	Tagline      string
	SiteURL      string
	SiteHost     string
	AssetsURL    string
	LiveURL      string
	ContactEmail string
	LaunchDate   string
}

// Templates は埋め込みHTMLテンプレートからメールを組み立てる。
type Templates struct {
	tmpl *template.Template
	data templateData
}

// NewTemplates はテンプレートを読み込み、ブランド情報を束縛する。
func NewTemplates(brand Brand) (*Templates, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse email templates: %w", err)
	}

	siteHost := brand.SiteURL
	if u, err := url.Parse(brand.SiteURL); err == nil && u.Host != "" {
		siteHost = u.Host
	}

	return &Templates{
		tmpl: tmpl,
		data: templateData{
			BrandName:    brand.Name,
			Tagline:      brand.Tagline,
			SiteURL:      brand.SiteURL,
			SiteHost:     siteHost,
			AssetsURL:    brand.AssetsURL,
			LiveURL:      brand.LiveURL,
			ContactEmail: brand.ContactEmail,
			LaunchDate:   FormatLaunchDate(brand.LaunchAt),
		},
	}, nil
}

// Render は指定テンプレートで宛先toへのMessageを組み立てる。
// テキスト版はHTMLから生成する。
func (t *Templates) Render(name, to string) (Message, error) {
	subject, ok := subjects[name]
	if !ok {
		return Message{}, fmt.Errorf("unknown email template: %s", name)
	}

	var buf bytes.Buffer
	if err := t.tmpl.ExecuteTemplate(&buf, name+".html", t.data); err != nil {
		return Message{}, fmt.Errorf("failed to render %s template: %w", name, err)
	}

	htmlBody := buf.String()
	return Message{
		To:       to,
		Subject:  fmt.Sprintf(subject, t.data.BrandName),
		HTML:     htmlBody,
		Text:     HTMLToText(htmlBody),
		Template: name,
	}, nil
}

// FormatLaunchDate はローンチ日時を "November 1, 2025 at 10:00 AM EAT" の形式で返す。
func FormatLaunchDate(t time.Time) string {
	return t.In(eat).Format("January 2, 2006 at 3:04 PM MST")
}
