package email

// Template names used by the account flows.
const (
	TemplateVerifyEmail  = "verify_email"
	TemplateVerifySubnet = "verify_subnet"
	TemplateLoginCode    = "login_code"
)

// Templates are compiled in so the binary carries everything it needs.
var templates = map[string]string{
	TemplateVerifyEmail: `<!DOCTYPE html>
<html>
  <body style="font-family: sans-serif; color: #1a1a1a;">
    <h2>Confirm your email</h2>
    <p>Hi {{.name}},</p>
    <p>Confirm this address to finish setting up your account.</p>
    <p><a href="{{.link}}" style="background:#2563eb;color:#fff;padding:10px 18px;border-radius:6px;text-decoration:none;">Verify email</a></p>
    <p>If you did not create an account, you can ignore this message.</p>
  </body>
</html>`,
	TemplateVerifySubnet: `<!DOCTYPE html>
<html>
  <body style="font-family: sans-serif; color: #1a1a1a;">
    <h2>New sign-in location</h2>
    <p>Hi {{.name}},</p>
    <p>We noticed a sign-in attempt from a new network near <strong>{{.locationName}}</strong>.</p>
    <p>If this was you, approve the new location to continue. The link works for 30 minutes.</p>
    <p><a href="{{.link}}" style="background:#2563eb;color:#fff;padding:10px 18px;border-radius:6px;text-decoration:none;">Approve location</a></p>
    <p>If this was not you, change your password now.</p>
  </body>
</html>`,
	TemplateLoginCode: `<!DOCTYPE html>
<html>
  <body style="font-family: sans-serif; color: #1a1a1a;">
    <h2>Your sign-in code</h2>
    <p>Hi {{.name}},</p>
    <p>Your one-time sign-in code is:</p>
    <p style="font-size: 28px; letter-spacing: 6px;"><strong>{{.code}}</strong></p>
    <p>It expires in {{.minutes}} minutes.</p>
  </body>
</html>`,
}

var subjects = map[string]string{
	TemplateVerifyEmail:  "Confirm your email address",
	TemplateVerifySubnet: "Approve a new sign-in location",
	TemplateLoginCode:    "Your sign-in code",
}
