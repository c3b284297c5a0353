package bot

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/tazhate/camerabot/internal/domain"
	"github.com/tazhate/camerabot/internal/storage"
)

const helpText = `📷 <b>Camera bot commands</b>

/cameras — list cameras on the hub
/snapshot [camera] — fresh snapshot
/ask &lt;question&gt; — ask the vision model about the default camera

/remind &lt;minutes&gt; [camera] — periodic snapshots to this chat
/reminders — active reminders here
/stopremind &lt;id&gt; — stop a reminder

/addalert &lt;camera&gt; &lt;idle_min&gt; &lt;cooldown_min&gt; &lt;from&gt;-&lt;to&gt; [ai prompt] — motion alert rule
/alerts [camera] — list rules
/togglealert &lt;id&gt; — enable/disable a rule
/delalert &lt;id&gt; — delete a rule

/history [n] — recent alert and reminder firings

Plain text is treated as /ask.`

func (b *Bot) handleUpdate(update tgbotapi.Update) {
	if update.Message == nil {
		return
	}
	b.handleMessage(update.Message)
}

func (b *Bot) handleMessage(msg *tgbotapi.Message) {
	chatID := msg.Chat.ID

	if !b.cfg.IsAllowedChat(chatID) {
		log.Printf("Ignoring message from chat %d (not allowed)", chatID)
		return
	}

	text := strings.TrimSpace(msg.Text)
	if text == "" {
		return
	}

	if msg.IsCommand() {
		b.handleCommand(msg)
		return
	}

	// Plain text = question about the default camera
	b.cmdAsk(chatID, text)
}

func (b *Bot) handleCommand(msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	args := strings.TrimSpace(msg.CommandArguments())

	switch msg.Command() {
	case "start", "help":
		b.SendMessage(chatID, helpText)
	case "cameras":
		b.cmdCameras(chatID)
	case "snapshot":
		b.cmdSnapshot(chatID, args)
	case "ask":
		b.cmdAsk(chatID, args)
	case "remind":
		b.cmdRemind(chatID, args)
	case "reminders":
		b.cmdReminders(chatID)
	case "stopremind":
		b.cmdStopRemind(chatID, args)
	case "addalert":
		b.cmdAddAlert(chatID, args)
	case "alerts":
		b.cmdAlerts(chatID, args)
	case "togglealert":
		b.cmdToggleAlert(chatID, args)
	case "delalert":
		b.cmdDelAlert(chatID, args)
	case "history":
		b.cmdHistory(chatID, args)
	default:
		b.SendMessage(chatID, "Unknown command, see /help")
	}
}

func (b *Bot) cmdCameras(chatID int64) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cameras, err := b.cameras.ListCameras(ctx)
	if err != nil {
		b.SendMessage(chatID, "❌ Cannot reach camera hub: "+err.Error())
		return
	}
	if len(cameras) == 0 {
		b.SendMessage(chatID, "No cameras on the hub")
		return
	}

	var sb strings.Builder
	sb.WriteString("📷 <b>Cameras</b>\n\n")
	for _, c := range cameras {
		status := "🟢"
		if !c.Online {
			status = "🔴"
		}
		sb.WriteString(fmt.Sprintf("%s <code>%s</code> %s\n", status, c.ID, c.Name))
	}
	b.SendMessage(chatID, sb.String())
}

func (b *Bot) cmdSnapshot(chatID int64, camera string) {
	if camera == "" {
		camera = b.cfg.DefaultCamera
	}
	if camera == "" {
		b.SendMessage(chatID, "Usage: /snapshot <camera> (no default camera configured)")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	img, err := b.cameras.Snapshot(ctx, camera)
	if err != nil {
		b.SendMessage(chatID, fmt.Sprintf("❌ Snapshot from %s failed: %v", camera, err))
		return
	}

	if err := b.SendPhoto(chatID, "📷 "+camera, img); err != nil {
		log.Printf("Failed to send snapshot to %d: %v", chatID, err)
	}
}

func (b *Bot) cmdAsk(chatID int64, question string) {
	if question == "" {
		b.SendMessage(chatID, "Usage: /ask <question about the camera view>")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	answer, err := b.engine.Analyze(ctx, "", question)
	if err != nil {
		b.SendMessage(chatID, "❌ "+err.Error())
		return
	}
	b.SendMessage(chatID, "🤖 "+answer)
}

func (b *Bot) cmdRemind(chatID int64, args string) {
	parts := strings.Fields(args)
	if len(parts) == 0 {
		b.SendMessage(chatID, "Usage: /remind <minutes> [camera]")
		return
	}

	minutes, err := strconv.Atoi(parts[0])
	if err != nil {
		b.SendMessage(chatID, "Interval must be a number of minutes")
		return
	}

	camera := ""
	if len(parts) > 1 {
		camera = parts[1]
	}

	rem, err := b.engine.CreateReminder(chatID, minutes, camera)
	if err != nil {
		b.SendMessage(chatID, "❌ "+err.Error())
		return
	}

	cameraName := rem.Camera
	if cameraName == "" {
		cameraName = "default camera"
	}
	b.SendMessage(chatID, fmt.Sprintf("⏰ Reminder created: %s every %d min\nid: <code>%s</code>", cameraName, rem.IntervalMinutes, rem.ID))
}

func (b *Bot) cmdReminders(chatID int64) {
	reminders, err := b.engine.ListReminders(chatID)
	if err != nil {
		b.SendMessage(chatID, "❌ "+err.Error())
		return
	}
	if len(reminders) == 0 {
		b.SendMessage(chatID, "No active reminders in this chat")
		return
	}

	var sb strings.Builder
	sb.WriteString("⏰ <b>Active reminders</b>\n\n")
	for _, r := range reminders {
		camera := r.Camera
		if camera == "" {
			camera = "default"
		}
		last := "never"
		if !r.LastRun.IsZero() {
			last = r.LastRun.In(b.cfg.Timezone).Format("02.01 15:04")
		}
		sb.WriteString(fmt.Sprintf("• %s every %dm (last: %s)\n  <code>%s</code>\n", camera, r.IntervalMinutes, last, r.ID))
	}
	b.SendMessage(chatID, sb.String())
}

func (b *Bot) cmdStopRemind(chatID int64, id string) {
	if id == "" {
		b.SendMessage(chatID, "Usage: /stopremind <id>")
		return
	}

	if err := b.engine.StopReminder(id); err != nil {
		b.SendMessage(chatID, "❌ "+err.Error())
		return
	}
	b.SendMessage(chatID, "🔕 Reminder stopped")
}

// cmdAddAlert parses: <camera> <idle_min> <cooldown_min> <from>-<to> [ai prompt...]
func (b *Bot) cmdAddAlert(chatID int64, args string) {
	parts := strings.Fields(args)
	if len(parts) < 4 {
		b.SendMessage(chatID, "Usage: /addalert <camera> <idle_min> <cooldown_min> <from>-<to> [ai prompt]\nExample: /addalert yard 10 60 22-6 is there a person?")
		return
	}

	idle, err := strconv.Atoi(parts[1])
	if err != nil {
		b.SendMessage(chatID, "Idle threshold must be a number of minutes")
		return
	}
	cooldown, err := strconv.Atoi(parts[2])
	if err != nil {
		b.SendMessage(chatID, "Cooldown must be a number of minutes")
		return
	}

	hours, err := parseActiveHours(parts[3])
	if err != nil {
		b.SendMessage(chatID, "❌ "+err.Error())
		return
	}

	spec := domain.AlertRuleSpec{
		Camera:               parts[0],
		IdleThresholdMinutes: idle,
		CooldownMinutes:      cooldown,
		ActiveHours:          hours,
		AIPrompt:             strings.Join(parts[4:], " "),
	}

	rule, err := b.engine.CreateAlertRule(spec)
	if err != nil {
		b.SendMessage(chatID, "❌ "+err.Error())
		return
	}

	b.SendMessage(chatID, fmt.Sprintf("🚨 Alert rule created for %s\nid: <code>%s</code>", rule.Camera, rule.ID))
}

func parseActiveHours(s string) (domain.ActiveHours, error) {
	parts := strings.SplitN(s, "-", 2)
	if len(parts) != 2 {
		return domain.ActiveHours{}, fmt.Errorf("active hours must look like 22-6")
	}
	start, err := strconv.Atoi(parts[0])
	if err != nil {
		return domain.ActiveHours{}, fmt.Errorf("invalid start hour %q", parts[0])
	}
	end, err := strconv.Atoi(parts[1])
	if err != nil {
		return domain.ActiveHours{}, fmt.Errorf("invalid end hour %q", parts[1])
	}

	hours := domain.ActiveHours{Start: start, End: end}
	if err := hours.Validate(); err != nil {
		return domain.ActiveHours{}, err
	}
	return hours, nil
}

func (b *Bot) cmdAlerts(chatID int64, camera string) {
	rules, err := b.engine.ListAlertRules(camera)
	if err != nil {
		b.SendMessage(chatID, "❌ "+err.Error())
		return
	}
	if len(rules) == 0 {
		b.SendMessage(chatID, "No alert rules configured")
		return
	}

	var sb strings.Builder
	sb.WriteString("🚨 <b>Alert rules</b>\n\n")
	for _, r := range rules {
		status := "🔔"
		if !r.Enabled {
			status = "🔕"
		}
		sb.WriteString(fmt.Sprintf("%s %s: idle %dm, cooldown %dm, hours %s", status, r.Camera, r.IdleThresholdMinutes, r.CooldownMinutes, r.ActiveHours))
		if r.AI.Enabled {
			sb.WriteString(fmt.Sprintf(", ai: %q", r.AI.Prompt))
		}
		if r.LastTriggered != nil {
			sb.WriteString(fmt.Sprintf("\n  last fired: %s", r.LastTriggered.In(b.cfg.Timezone).Format("02.01 15:04")))
		}
		sb.WriteString(fmt.Sprintf("\n  <code>%s</code>\n", r.ID))
	}
	b.SendMessage(chatID, sb.String())
}

func (b *Bot) cmdToggleAlert(chatID int64, id string) {
	if id == "" {
		b.SendMessage(chatID, "Usage: /togglealert <id>")
		return
	}

	rule, err := b.engine.ListAlertRules("")
	if err != nil {
		b.SendMessage(chatID, "❌ "+err.Error())
		return
	}

	var enabled *bool
	for _, r := range rule {
		if r.ID == id {
			v := !r.Enabled
			enabled = &v
			break
		}
	}
	if enabled == nil {
		b.SendMessage(chatID, "❌ "+storage.ErrRuleNotFound.Error())
		return
	}

	updated, err := b.engine.UpdateAlertRule(id, domain.AlertRulePatch{Enabled: enabled})
	if err != nil {
		b.SendMessage(chatID, "❌ "+err.Error())
		return
	}

	if updated.Enabled {
		b.SendMessage(chatID, "🔔 Rule enabled")
	} else {
		b.SendMessage(chatID, "🔕 Rule disabled")
	}
}

func (b *Bot) cmdDelAlert(chatID int64, id string) {
	if id == "" {
		b.SendMessage(chatID, "Usage: /delalert <id>")
		return
	}

	if err := b.engine.DeleteAlertRule(id); err != nil {
		b.SendMessage(chatID, "❌ "+err.Error())
		return
	}
	b.SendMessage(chatID, "🗑 Rule deleted")
}

func (b *Bot) cmdHistory(chatID int64, args string) {
	limit := 10
	if args != "" {
		if n, err := strconv.Atoi(args); err == nil && n > 0 {
			limit = n
		}
	}

	events, err := b.history.Recent(limit)
	if err != nil {
		b.SendMessage(chatID, "❌ "+err.Error())
		return
	}
	if len(events) == 0 {
		b.SendMessage(chatID, "No firings yet")
		return
	}

	var sb strings.Builder
	sb.WriteString("🕘 <b>Recent firings</b>\n\n")
	for _, e := range events {
		icon := "🚨"
		if e.Kind == storage.EventReminder {
			icon = "⏰"
		}
		sb.WriteString(fmt.Sprintf("%s %s %s %s", icon, e.CreatedAt.In(b.cfg.Timezone).Format("02.01 15:04"), e.Camera, e.Outcome))
		if e.Detail != "" {
			sb.WriteString(" — " + e.Detail)
		}
		sb.WriteString("\n")
	}
	b.SendMessage(chatID, sb.String())
}
