// Package screens holds the user-facing texts and keyboards of the bot.
package screens

import (
	"ai-master-bot/internal/models"
	"ai-master-bot/internal/utils"
	"fmt"
	"net/url"
)

const (
	MainMenu      models.ScreenID = "main_menu"
	DiagRequest   models.ScreenID = "diag_request"
	Diagnosis     models.ScreenID = "diagnosis"
	Consent       models.ScreenID = "consent"
	AccessRequest models.ScreenID = "access_request"
	Working       models.ScreenID = "working"
	WorkReport    models.ScreenID = "work_report"
	Payment       models.ScreenID = "payment"
	Paid          models.ScreenID = "paid"
	HowItWorks    models.ScreenID = "how_it_works"
	Prices        models.ScreenID = "prices"
	Help          models.ScreenID = "help"
	Referral      models.ScreenID = "referral"
	UseMenu       models.ScreenID = "use_menu"
	UnknownAction models.ScreenID = "unknown_action"
	Fallback      models.ScreenID = "fallback"
	Reminder      models.ScreenID = "payment_reminder"
)

// Callback data carried by inline buttons.
const (
	DataDiagStart  = "diag_start"
	DataHowItWorks = "how_it_works"
	DataPrices     = "prices"
	DataHelp       = "help"
	DataReferral   = "referral"
	DataBack       = "back"
	DataConsent    = "consent_yes"
	DataAccess     = "access_yes"
	DataPay        = "pay"
	DataPackage    = "pkg_"
)

// UnknownActionText is the callback acknowledgment for rejected presses.
const UnknownActionText = "Невідома дія"

// Package describes a selectable service tier.
type Package struct {
	Code  models.Package
	Title string
	About string
}

// Packages in menu order.
var Packages = []Package{
	{Code: models.PackageBasic, Title: "BASIC — 600 грн", About: "консультація + план перевірки"},
	{Code: models.PackageStandard, Title: "STANDARD — 1000 грн", About: "базове усунення лагів/автозапуск/очистка"},
	{Code: models.PackagePro, Title: "PRO — 1700 грн", About: "глибша діагностика + системні правки + контрольний тест"},
	{Code: models.PackageProPlusOS, Title: "PRO + Windows", About: "якщо без перевстановлення/оновлення Windows не вирішити"},
}

// Context carries the per-user values some screens interpolate.
type Context struct {
	UserID    int64
	FirstName string
	Summary   string
	Package   models.Package
	Report    string
	Referrals int
}

// Builder renders screens. BotName is used for referral links.
type Builder struct {
	BotName string
}

func (b Builder) Build(id models.ScreenID, c Context) models.Screen {
	switch id {
	case MainMenu:
		return models.Screen{ID: id, Text: b.greeting(c), Buttons: mainKeyboard()}
	case DiagRequest:
		return models.Screen{ID: id, Text: diagRequestText}
	case Diagnosis:
		text := fmt.Sprintf(diagResultTemplate, utils.EscapeHTML(c.Summary))
		return models.Screen{ID: id, Text: text, Buttons: packagesKeyboard()}
	case Consent:
		return models.Screen{ID: id, Text: fmt.Sprintf(consentTemplate, utils.EscapeHTML(packageTitle(c.Package))), Buttons: [][]models.Button{
			{{Text: "✅ Приймаю умови", Data: DataConsent}},
			backRow(),
		}}
	case AccessRequest:
		return models.Screen{ID: id, Text: accessRequestText, Buttons: [][]models.Button{
			{{Text: "🔐 Я надаю доступ", Data: DataAccess}},
			backRow(),
		}}
	case Working:
		return models.Screen{ID: id, Text: workingText, Buttons: [][]models.Button{backRow()}}
	case WorkReport:
		return models.Screen{ID: id, Text: "✅ Готово. Попередній результат: " + utils.EscapeHTML(c.Report)}
	case Payment:
		return models.Screen{ID: id, Text: paymentText, Buttons: [][]models.Button{
			{{Text: "💰 Оплатити пакет", Data: DataPay}},
			backRow(),
		}}
	case Paid:
		return models.Screen{ID: id, Text: paidText, Buttons: [][]models.Button{backRow()}}
	case Reminder:
		return models.Screen{ID: id, Text: reminderText, Buttons: [][]models.Button{
			{{Text: "💰 Оплатити пакет", Data: DataPay}},
		}}
	case HowItWorks:
		return models.Screen{ID: id, Text: howItWorksText, Buttons: [][]models.Button{backRow()}}
	case Prices:
		return models.Screen{ID: id, Text: pricesText(), Buttons: [][]models.Button{backRow()}}
	case Help:
		return models.Screen{ID: id, Text: helpText, Buttons: [][]models.Button{backRow()}}
	case Referral:
		return b.referral(c)
	case UseMenu:
		return models.Screen{ID: id, Text: "Напиши /start щоб відкрити меню ✅"}
	case UnknownAction:
		return models.Screen{ID: id, Text: UnknownActionText}
	default:
		return models.Screen{ID: Fallback, Text: fallbackText}
	}
}

// ReferralLink is the deep link that credits userID on /start.
func (b Builder) ReferralLink(userID int64) string {
	return fmt.Sprintf("https://t.me/%s?start=ref_%d", b.BotName, userID)
}

// Credited is sent to the referrer when an invite is counted.
func (b Builder) Credited(referredName string, total int) models.Screen {
	if referredName == "" {
		referredName = "Новий користувач"
	}
	return models.Screen{
		ID:   "referral_credited",
		Text: fmt.Sprintf("🎉 %s приєднався за твоїм запрошенням!\nУсього запрошено: <b>%d</b>", utils.EscapeHTML(referredName), total),
	}
}

// Welcomed is sent to the referred user after attribution.
func (b Builder) Welcomed() models.Screen {
	return models.Screen{ID: "referral_welcome", Text: "🤝 Тебе запросив друг — запрошення зараховано."}
}

func (b Builder) greeting(c Context) string {
	text := startText
	if c.FirstName != "" {
		text = fmt.Sprintf("Привіт, %s! ", utils.EscapeHTML(c.FirstName)) + startBody
	}
	if c.Referrals > 0 {
		text += fmt.Sprintf("\n\n👥 Ти вже запросив друзів: <b>%d</b>", c.Referrals)
	}
	return text
}

func (b Builder) referral(c Context) models.Screen {
	link := b.ReferralLink(c.UserID)
	share := "https://t.me/share/url?url=" + url.QueryEscape(link) + "&text=" + url.QueryEscape(shareText)
	text := fmt.Sprintf(referralTemplate, utils.EscapeHTML(link), c.Referrals)
	return models.Screen{ID: Referral, Text: text, Buttons: [][]models.Button{
		{{Text: "👥 Надіслати другу", URL: share}},
		backRow(),
	}}
}

func mainKeyboard() [][]models.Button {
	return [][]models.Button{
		{{Text: "🧰 Почати діагностику", Data: DataDiagStart}},
		{{Text: "ℹ️ Як проходить діагностика", Data: DataHowItWorks}},
		{{Text: "💰 Вартість / пакети", Data: DataPrices}},
		{{Text: "👥 Запросити друга", Data: DataReferral}},
		{{Text: "🆘 Допомога", Data: DataHelp}},
	}
}

func packagesKeyboard() [][]models.Button {
	rows := make([][]models.Button, 0, len(Packages)+1)
	for _, p := range Packages {
		rows = append(rows, []models.Button{{Text: "✅ " + p.Title, Data: DataPackage + string(p.Code)}})
	}
	return append(rows, backRow())
}

func backRow() []models.Button {
	return []models.Button{{Text: "↩️ Назад", Data: DataBack}}
}

func packageTitle(code models.Package) string {
	for _, p := range Packages {
		if p.Code == code {
			return p.Title
		}
	}
	return string(code)
}

func pricesText() string {
	text := "📦 <b>Пакети</b>\n"
	for _, p := range Packages {
		text += fmt.Sprintf("\n✅ <b>%s</b>\n• %s\n", p.Title, p.About)
	}
	return text
}
