package service

import (
	"fmt"
	"html"
	"strings"

	"moneytrack/config"

	"gopkg.in/gomail.v2"
)

// EmailService 邮件服务
type EmailService struct {
	cfg  *config.EmailConfig
	send func(m *gomail.Message) error
}

// NewEmailService 创建邮件服务
func NewEmailService(cfg *config.EmailConfig) *EmailService {
	s := &EmailService{cfg: cfg}
	s.send = s.dialAndSend
	return s
}

// Enabled 邮件服务是否可用
func (s *EmailService) Enabled() bool {
	return s != nil && s.cfg != nil && s.cfg.Enabled
}

// SendPasswordResetCode 发送密码重置验证码
func (s *EmailService) SendPasswordResetCode(toEmail, username, code string) error {
	if !s.Enabled() {
		return fmt.Errorf("邮件服务未启用，请配置 MONEYTRACK_EMAIL_ENABLED=true")
	}
	return s.sendEmail(toEmail, "【记账本】密码重置验证码", s.resetCodeBody(username, code))
}

// SendBudgetAlert 发送预算超支提醒
func (s *EmailService) SendBudgetAlert(toEmail, username string, year, month int, exceeded []BudgetStatus) error {
	if !s.Enabled() {
		return fmt.Errorf("邮件服务未启用")
	}
	if len(exceeded) == 0 {
		return nil
	}
	subject := fmt.Sprintf("【记账本】%d年%d月预算超支提醒", year, month)
	return s.sendEmail(toEmail, subject, s.budgetAlertBody(username, year, month, exceeded))
}

const emailStyle = `
        body { font-family: 'Microsoft YaHei', Arial, sans-serif; background: #f5f5f5; margin: 0; padding: 20px; }
        .container { max-width: 600px; margin: 0 auto; background: #fff; border-radius: 12px; overflow: hidden; box-shadow: 0 4px 20px rgba(0,0,0,0.1); }
        .header { color: white; padding: 30px; text-align: center; }
        .header h1 { margin: 0; font-size: 24px; }
        .content { padding: 40px 30px; }
        .content p { color: #333; line-height: 1.8; margin: 0 0 20px; }
        .code-box { background: #eff6ff; border: 2px dashed #2563eb; border-radius: 12px; padding: 30px; text-align: center; margin: 30px 0; }
        .code { font-size: 36px; font-weight: bold; color: #1d4ed8; letter-spacing: 8px; font-family: 'Courier New', monospace; }
        .warning { background: #fff3cd; border-left: 4px solid #ffc107; padding: 15px; margin: 20px 0; border-radius: 4px; }
        .warning p { margin: 0; color: #856404; font-size: 14px; }
        table { width: 100%; border-collapse: collapse; }
        th, td { padding: 8px; border-bottom: 1px solid #eee; text-align: right; }
        th:first-child, td:first-child { text-align: left; }
        .danger { color: #dc2626; font-weight: 600; }
        .footer { background: #f8f9fa; padding: 20px 30px; text-align: center; color: #6c757d; font-size: 12px; }
`

func wrapEmail(headerColor, content string) string {
	return fmt.Sprintf(`
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <style>%s</style>
</head>
<body>
    <div class="container">
        <div class="header" style="background: %s;">
            <h1>💰 记账本</h1>
        </div>
        <div class="content">%s</div>
        <div class="footer">
            <p>此邮件由系统自动发送，请勿回复</p>
        </div>
    </div>
</body>
</html>
`, emailStyle, headerColor, content)
}

// resetCodeBody 密码重置验证码邮件内容
func (s *EmailService) resetCodeBody(username, code string) string {
	content := fmt.Sprintf(`
            <p>尊敬的 <strong>%s</strong>，您好！</p>
            <p>我们收到了您的密码重置请求，请使用以下验证码重置您的密码：</p>
            <div class="code-box"><span class="code">%s</span></div>
            <div class="warning">
                <p>⚠️ 此验证码有效期为 <strong>10 分钟</strong>，请尽快完成密码重置。</p>
                <p>⚠️ 如果您没有请求重置密码，请忽略此邮件。</p>
            </div>`, html.EscapeString(username), html.EscapeString(code))
	return wrapEmail("#2563eb", content)
}

// budgetAlertBody 预算超支邮件内容
func (s *EmailService) budgetAlertBody(username string, year, month int, exceeded []BudgetStatus) string {
	var rows strings.Builder
	for _, b := range exceeded {
		fmt.Fprintf(&rows, `<tr><td>%s</td><td>%s</td><td>%s</td><td class="danger">%s</td><td class="danger">%s%%</td></tr>`,
			html.EscapeString(b.Name),
			b.Amount.StringFixed(2),
			b.Spent.StringFixed(2),
			b.Overspend.StringFixed(2),
			b.Percent.StringFixed(2),
		)
	}
	content := fmt.Sprintf(`
            <p>尊敬的 <strong>%s</strong>，您好！</p>
            <p>您 %d 年 %d 月的以下预算已超支：</p>
            <table>
                <tr><th>预算</th><th>金额</th><th>已支出</th><th>超支</th><th>使用率</th></tr>
                %s
            </table>`, html.EscapeString(username), year, month, rows.String())
	return wrapEmail("#dc2626", content)
}

// sendEmail 发送邮件
func (s *EmailService) sendEmail(to, subject, body string) error {
	m := gomail.NewMessage()
	m.SetHeader("From", m.FormatAddress(s.cfg.Username, s.cfg.From))
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", body)

	if err := s.send(m); err != nil {
		return fmt.Errorf("发送邮件失败: %w", err)
	}
	return nil
}

func (s *EmailService) dialAndSend(m *gomail.Message) error {
	d := gomail.NewDialer(s.cfg.Host, s.cfg.Port, s.cfg.Username, s.cfg.Password)
	return d.DialAndSend(m)
}
