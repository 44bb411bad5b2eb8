package telegram

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"trip-planner/internal/app"
	"trip-planner/internal/clipper"
	"trip-planner/internal/config"
	"trip-planner/internal/database"
	"trip-planner/internal/feed"
	"trip-planner/internal/geocode"
	"trip-planner/internal/itinerary"
	"trip-planner/internal/metrics"
	"trip-planner/internal/notes"
	"trip-planner/internal/trip"
	"trip-planner/internal/wishlist"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// sessionTTL bounds how long an add-stop conversation stays open.
const sessionTTL = 10 * time.Minute

// Bot wraps the Telegram API and the trip planner.
type Bot struct {
	api          *tgbotapi.BotAPI
	cfg          *config.Config
	application  *app.App
	hub          *database.Hub
	planRepo     *trip.Repository
	locationRepo *itinerary.Repository
	sessions     *SessionRepository
	wishStore    *wishlist.Store
	notesStore   *notes.Store
	geocoder     *geocode.Client
	placeClipper *clipper.Clipper
	metricsStore *metrics.Store

	watchMu  sync.Mutex
	watchers map[int64]context.CancelFunc
}

// NewBot initializes the Telegram Bot and sets the Webhook.
func NewBot(
	cfg *config.Config,
	application *app.App,
	hub *database.Hub,
	planRepo *trip.Repository,
	locationRepo *itinerary.Repository,
	sessions *SessionRepository,
	wishStore *wishlist.Store,
	notesStore *notes.Store,
	geocoder *geocode.Client,
	placeClipper *clipper.Clipper,
	metricsStore *metrics.Store,
) (*Bot, error) {
	bot, err := tgbotapi.NewBotAPI(cfg.TelegramBotToken)
	if err != nil {
		return nil, fmt.Errorf("failed to init telegram api: %w", err)
	}

	log.Printf("Authorized on account %s", bot.Self.UserName)

	webhookURL := cfg.TelegramWebhookURL
	wh, _ := tgbotapi.NewWebhook(webhookURL)
	resp, err := bot.Request(wh)
	if err != nil {
		return nil, fmt.Errorf("failed to set webhook to %s: %w", webhookURL, err)
	}
	log.Printf("Webhook set response: %s", resp.Description)

	return &Bot{
		api:          bot,
		cfg:          cfg,
		application:  application,
		hub:          hub,
		planRepo:     planRepo,
		locationRepo: locationRepo,
		sessions:     sessions,
		wishStore:    wishStore,
		notesStore:   notesStore,
		geocoder:     geocoder,
		placeClipper: placeClipper,
		metricsStore: metricsStore,
		watchers:     make(map[int64]context.CancelFunc),
	}, nil
}

// RegisterHandlers registers the webhook handler with the default HTTP mux.
func (b *Bot) RegisterHandlers() {
	http.HandleFunc("/webhook", b.handleWebhook)
	http.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
}

func (b *Bot) handleWebhook(w http.ResponseWriter, r *http.Request) {
	update, err := b.api.HandleUpdate(r)
	if err != nil {
		log.Printf("Error parsing update: %v", err)
		return
	}

	if update.CallbackQuery != nil {
		if b.isAllowed(update.CallbackQuery.From.ID) {
			go b.handleCallbackQuery(update.CallbackQuery)
		}
		return
	}

	if update.Message == nil {
		return
	}

	if !b.isAllowed(update.Message.From.ID) {
		log.Printf("⚠️ Unauthorized access attempt from UserID: %d (@%s)", update.Message.From.ID, update.Message.From.UserName)
		return
	}

	go b.processMessage(update.Message)
}

func (b *Bot) isAllowed(userID int64) bool {
	for _, id := range b.cfg.TelegramAllowedUserIDs {
		if userID == id {
			return true
		}
	}
	return false
}

func (b *Bot) processMessage(msg *tgbotapi.Message) {
	ctx := context.Background()
	command, args := splitCommand(msg.Text)

	switch command {
	case "/metrics":
		b.handleMetricsRequest(msg)
	case "/plans":
		b.reply(msg.Chat.ID, b.formatPlanList(ctx, trip.StatusActive))
	case "/history":
		b.reply(msg.Chat.ID, b.formatPlanList(ctx, trip.StatusCompleted))
	case "/newplan":
		b.handleNewPlan(ctx, msg.Chat.ID, args)
	case "/trip":
		b.reply(msg.Chat.ID, b.formatTimeline(ctx, args))
	case "/addstop":
		b.handleAddStop(ctx, msg, args)
	case "/reorder":
		b.handleReorder(ctx, msg.Chat.ID, args)
	case "/done":
		b.handleStatusChange(ctx, msg.Chat.ID, args, trip.StatusCompleted)
	case "/reopen":
		b.handleStatusChange(ctx, msg.Chat.ID, args, trip.StatusActive)
	case "/delete":
		b.handleDelete(ctx, msg.Chat.ID, args)
	case "/wishlist":
		b.reply(msg.Chat.ID, b.formatWishlist())
	case "/checklist":
		b.handleChecklist(msg.Chat.ID, args)
	case "/journal":
		b.handleJournal(msg.Chat.ID, args)
	case "/export":
		b.handleExport(ctx, msg.Chat.ID, args)
	case "/publish":
		b.handlePublish(ctx, msg.Chat.ID, args)
	case "/suggest":
		b.handleSuggest(ctx, msg.Chat.ID, args)
	case "/watch":
		b.handleWatch(msg.Chat.ID)
	case "/unwatch":
		b.handleUnwatch(msg.Chat.ID)
		b.reply(msg.Chat.ID, "👋 Stopped watching.")
	default:
		if strings.HasPrefix(msg.Text, "http://") || strings.HasPrefix(msg.Text, "https://") {
			b.handleClipRequest(ctx, msg)
			return
		}
		// A plain message continues an open conversation, if any.
		if b.continueSession(ctx, msg) {
			return
		}
		b.reply(msg.Chat.ID, helpText)
	}
}

const helpText = `🧭 *Trip Planner*

/plans - active trips
/history - finished trips
/newplan Name | 2026-03-01 | 2026-03-05
/trip <plan> - day-by-day timeline
/addstop <plan> [2026-03-02T09:00] [notes] - add a stop
/reorder <plan> 3,1,2 - move stops
/done <plan>, /reopen <plan>, /delete <plan>
/checklist <plan> [add <label> | toggle <n>]
/journal <plan> [text]
/wishlist - saved places (send a URL to clip one)
/watch and /unwatch - live trip updates in this chat
/export <plan>, /publish <plan>, /suggest <plan>`

func splitCommand(text string) (string, string) {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "/") {
		return "", text
	}
	parts := strings.SplitN(text, " ", 2)
	command := strings.ToLower(parts[0])
	if i := strings.Index(command, "@"); i > 0 {
		command = command[:i]
	}
	if len(parts) == 1 {
		return command, ""
	}
	return command, strings.TrimSpace(parts[1])
}

func (b *Bot) reply(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = "Markdown"
	if _, err := b.api.Send(msg); err != nil {
		log.Printf("Failed to send reply: %v", err)
	}
}

func (b *Bot) replyError(chatID int64, context string, err error) {
	log.Printf("Error %s: %v", context, err)
	safeErr := strings.ReplaceAll(err.Error(), "`", "'")
	b.reply(chatID, fmt.Sprintf("❌ *Error %s:*\n```\n%v\n```", context, safeErr))
}

func (b *Bot) formatPlanList(ctx context.Context, status string) string {
	plans, err := b.planRepo.ListByStatus(ctx, status)
	if err != nil {
		log.Printf("Error listing plans: %v", err)
		return "❌ Error listing plans."
	}

	less := trip.ByStartDateAsc
	title := "🗺 *Active Trips*"
	if status == trip.StatusCompleted {
		less = trip.ByEndDateDesc
		title = "🏁 *Trip History*"
	}
	trip.SortPlans(plans, less)

	var sb strings.Builder
	sb.WriteString(title + "\n\n")
	if len(plans) == 0 {
		sb.WriteString("_None yet_")
	}
	for _, p := range plans {
		sb.WriteString(fmt.Sprintf("• *%s* (%s)\n  `%s`\n", p.Name, trip.FormatDateRange(p.StartDate, p.EndDate), p.ID))
	}
	return sb.String()
}

func (b *Bot) handleNewPlan(ctx context.Context, chatID int64, args string) {
	parts := strings.Split(args, "|")
	if len(parts) != 3 {
		b.reply(chatID, "Usage: /newplan Name | 2026-03-01 | 2026-03-05")
		return
	}

	start, err1 := time.Parse("2006-01-02", strings.TrimSpace(parts[1]))
	end, err2 := time.Parse("2006-01-02", strings.TrimSpace(parts[2]))
	if err1 != nil || err2 != nil {
		b.reply(chatID, "Dates must look like 2026-03-01.")
		return
	}

	plan, err := b.planRepo.Create(ctx, trip.Draft{
		Name:      strings.TrimSpace(parts[0]),
		StartDate: start,
		EndDate:   end,
	})
	if err != nil {
		b.replyError(chatID, "creating plan", err)
		return
	}
	b.reply(chatID, fmt.Sprintf("✅ *%s* created.\nAdd stops with `/addstop %s`", plan.Name, plan.ID))
}

func (b *Bot) formatTimeline(ctx context.Context, planID string) string {
	plan, err := b.planRepo.GetByID(ctx, planID)
	if err != nil {
		return "❌ Plan not found. List them with /plans."
	}
	locations, err := b.locationRepo.ListForPlan(ctx, planID)
	if err != nil {
		log.Printf("Error listing locations: %v", err)
		return "❌ Error loading the timeline."
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("🧭 *%s*\n_%s_\n", plan.Name, trip.FormatDateRange(plan.StartDate, plan.EndDate)))
	sections := itinerary.BuildTimeline(locations)
	if len(sections) == 0 {
		sb.WriteString("\n_No stops yet._")
	}
	n := 0
	for _, section := range sections {
		sb.WriteString(fmt.Sprintf("\n*%s*\n", section.Title))
		for _, loc := range section.Locations {
			n++
			sb.WriteString(fmt.Sprintf("%d. %s (%s)\n", n, loc.Name, loc.VisitDate.Format("15:04")))
			if loc.Notes != "" {
				sb.WriteString(fmt.Sprintf("   _%s_\n", loc.Notes))
			}
		}
	}
	return sb.String()
}

// visitDateLayout is the format stop times are entered and stored in.
const visitDateLayout = "2006-01-02T15:04"

// parseAddStopArgs splits "/addstop <plan> [2026-03-02T09:00] [notes]"
// into the plan id and the pre-filled form fields. Date and notes are
// optional; they survive the place-search round trip in the session.
func parseAddStopArgs(args string) (string, LocationForm) {
	fields := strings.Fields(args)
	if len(fields) == 0 {
		return "", LocationForm{}
	}

	form := LocationForm{}
	rest := fields[1:]
	if len(rest) > 0 {
		if _, err := time.Parse(visitDateLayout, rest[0]); err == nil {
			form.VisitDate = rest[0]
			rest = rest[1:]
		}
	}
	form.Notes = strings.Join(rest, " ")
	return fields[0], form
}

// handleAddStop opens an add-stop conversation: the next plain message
// is treated as a place query, and the chosen result completes the
// form with its coordinates.
func (b *Bot) handleAddStop(ctx context.Context, msg *tgbotapi.Message, args string) {
	planID, form := parseAddStopArgs(args)
	if planID == "" {
		b.reply(msg.Chat.ID, "Usage: /addstop <plan> [2026-03-02T09:00] [notes]")
		return
	}
	if _, err := b.planRepo.GetByID(ctx, planID); err != nil {
		b.reply(msg.Chat.ID, "❌ Plan not found. List them with /plans.")
		return
	}

	userID := strconv.FormatInt(msg.From.ID, 10)
	_, err := b.sessions.Create(ctx, userID, SessionAddStop, StateAwaitingQuery,
		SessionContextData{PlanID: planID, Form: form}, sessionTTL)
	if err != nil {
		b.replyError(msg.Chat.ID, "starting stop form", err)
		return
	}
	b.reply(msg.Chat.ID, "📍 Where to? Send a place name to search.")
}

// continueSession feeds a plain message into the user's open
// conversation. Returns false when no conversation is in progress.
func (b *Bot) continueSession(ctx context.Context, msg *tgbotapi.Message) bool {
	userID := strconv.FormatInt(msg.From.ID, 10)
	session, err := b.sessions.GetActive(ctx, userID, time.Now().UTC())
	if err != nil {
		log.Printf("Error fetching session: %v", err)
		return false
	}
	if session == nil || session.State != StateAwaitingQuery {
		return false
	}

	data, err := session.GetContextData()
	if err != nil {
		log.Printf("Error decoding session data: %v", err)
		return false
	}

	if utf8.RuneCountInString(msg.Text) < geocode.MinQueryLength {
		b.reply(msg.Chat.ID, fmt.Sprintf("Type at least %d characters to search.", geocode.MinQueryLength))
		return true
	}

	places, err := b.geocoder.Search(ctx, msg.Text)
	if err != nil {
		b.replyError(msg.Chat.ID, "searching places", err)
		return true
	}
	if err := b.metricsStore.Record(metrics.EventGeocodeLookup); err != nil {
		log.Printf("Warning: failed to record geocode event: %v", err)
	}
	if len(places) == 0 {
		b.reply(msg.Chat.ID, "🤷 No places found, try a different query.")
		return true
	}

	// Candidates live in the session; callback data only carries the
	// picked index (it is limited to 64 bytes).
	data.Candidates = places
	data.Form.Name = msg.Text
	if err := b.sessions.Update(ctx, session.ID, StateAwaitingChoice, data); err != nil {
		b.replyError(msg.Chat.ID, "saving stop form", err)
		return true
	}

	var rows [][]tgbotapi.InlineKeyboardButton
	for i, p := range places {
		label := p.DisplayName
		if len(label) > 48 {
			label = label[:48] + "…"
		}
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(label, fmt.Sprintf("pick|%d", i)),
		))
	}
	reply := tgbotapi.NewMessage(msg.Chat.ID, "Pick the right place:")
	reply.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(rows...)
	b.api.Send(reply)
	return true
}

func (b *Bot) handleCallbackQuery(query *tgbotapi.CallbackQuery) {
	ctx := context.Background()
	b.api.Request(tgbotapi.NewCallback(query.ID, ""))

	parts := strings.Split(query.Data, "|")
	if len(parts) != 2 || parts[0] != "pick" {
		return
	}
	index, err := strconv.Atoi(parts[1])
	if err != nil {
		return
	}

	userID := strconv.FormatInt(query.From.ID, 10)
	session, err := b.sessions.GetActive(ctx, userID, time.Now().UTC())
	if err != nil || session == nil || session.State != StateAwaitingChoice {
		b.reply(query.Message.Chat.ID, "That search has expired, start over with /addstop.")
		return
	}

	data, err := session.GetContextData()
	if err != nil || index < 0 || index >= len(data.Candidates) {
		b.reply(query.Message.Chat.ID, "That search has expired, start over with /addstop.")
		return
	}
	place := data.Candidates[index]

	plan, err := b.planRepo.GetByID(ctx, data.PlanID)
	if err != nil {
		b.replyError(query.Message.Chat.ID, "loading plan", err)
		return
	}

	// The form entered before the search comes back verbatim, plus the
	// picked coordinates; an omitted date defaults to the trip start.
	data.Form.Latitude = place.Latitude
	data.Form.Longitude = place.Longitude
	visit := plan.StartDate
	if data.Form.VisitDate != "" {
		if parsed, err := time.Parse(visitDateLayout, data.Form.VisitDate); err == nil {
			visit = parsed
		}
	}

	loc, err := b.locationRepo.Create(ctx, data.PlanID, itinerary.Draft{
		Name:      place.Name,
		VisitDate: visit,
		Notes:     data.Form.Notes,
		Latitude:  data.Form.Latitude,
		Longitude: data.Form.Longitude,
	})
	if err != nil {
		b.replyError(query.Message.Chat.ID, "saving stop", err)
		return
	}
	b.sessions.Delete(ctx, session.ID)

	edit := tgbotapi.NewEditMessageText(query.Message.Chat.ID, query.Message.MessageID,
		fmt.Sprintf("✅ *%s* added to *%s* (stop %d).", loc.Name, plan.Name, loc.OrderIndex+1))
	edit.ParseMode = "Markdown"
	b.api.Send(edit)
}

// handleReorder moves stops by their current 1-based timeline
// positions, e.g. "/reorder <plan> 3,1,2" puts the third stop first.
func (b *Bot) handleReorder(ctx context.Context, chatID int64, args string) {
	fields := strings.Fields(args)
	if len(fields) != 2 {
		b.reply(chatID, "Usage: /reorder <plan> 3,1,2")
		return
	}
	planID := fields[0]

	locations, err := b.locationRepo.ListForPlan(ctx, planID)
	if err != nil {
		b.replyError(chatID, "loading stops", err)
		return
	}

	positions := strings.Split(fields[1], ",")
	if len(positions) != len(locations) {
		b.reply(chatID, fmt.Sprintf("The plan has %d stops; list all of them.", len(locations)))
		return
	}

	ids := make([]string, 0, len(positions))
	seen := make(map[int]bool)
	for _, p := range positions {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil || n < 1 || n > len(locations) || seen[n] {
			b.reply(chatID, "Positions must be each current stop number exactly once.")
			return
		}
		seen[n] = true
		ids = append(ids, locations[n-1].ID)
	}

	if err := b.locationRepo.Reorder(ctx, planID, ids); err != nil {
		b.replyError(chatID, "reordering stops", err)
		return
	}
	b.reply(chatID, "✅ Stops reordered.\n"+b.formatTimeline(ctx, planID))
}

func (b *Bot) handleStatusChange(ctx context.Context, chatID int64, planID, status string) {
	if err := b.planRepo.UpdateStatus(ctx, planID, status); err != nil {
		b.replyError(chatID, "updating plan", err)
		return
	}
	if status == trip.StatusCompleted {
		b.reply(chatID, "🏁 Trip moved to history. See it with /history.")
	} else {
		b.reply(chatID, "🗺 Trip is active again.")
	}
}

func (b *Bot) handleDelete(ctx context.Context, chatID int64, planID string) {
	if err := b.planRepo.Delete(ctx, planID); err != nil {
		b.replyError(chatID, "deleting plan", err)
		return
	}
	b.reply(chatID, "🗑 Plan and all of its stops deleted.")
}

func (b *Bot) formatWishlist() string {
	items := b.wishStore.Items()
	var sb strings.Builder
	sb.WriteString("⭐ *Wishlist*\n\n")
	if len(items) == 0 {
		sb.WriteString("_Empty. Send a link to a place page to clip it._")
	}
	for _, item := range items {
		sb.WriteString(fmt.Sprintf("• *%s* (%.4f, %.4f)\n", item.Name, item.Latitude, item.Longitude))
		if item.Details != "" {
			sb.WriteString(fmt.Sprintf("  _%s_\n", item.Details))
		}
	}
	return sb.String()
}

func (b *Bot) handleClipRequest(ctx context.Context, msg *tgbotapi.Message) {
	statusText := "✂️ *Clipping place...* \n(Extracting coordinates and saving to your wishlist)"
	replyMsg := tgbotapi.NewMessage(msg.Chat.ID, statusText)
	replyMsg.ParseMode = "Markdown"
	sentMsg, err := b.api.Send(replyMsg)
	if err != nil {
		log.Printf("Failed to send initial reply: %v", err)
		return
	}

	item, err := b.placeClipper.ClipURL(ctx, msg.Text)
	var finalText string
	if err != nil {
		log.Printf("Error clipping place: %v", err)
		safeErr := strings.ReplaceAll(err.Error(), "`", "'")
		finalText = fmt.Sprintf("❌ *Error clipping place:*\n```\n%v\n```", safeErr)
	} else {
		finalText = fmt.Sprintf("✅ *Saved to wishlist!*\n\n*Place:* %s\n*Coordinates:* %.4f, %.4f", item.Name, item.Latitude, item.Longitude)
	}
	edit := tgbotapi.NewEditMessageText(msg.Chat.ID, sentMsg.MessageID, finalText)
	edit.ParseMode = "Markdown"
	b.api.Send(edit)
}

func (b *Bot) handleChecklist(chatID int64, args string) {
	fields := strings.Fields(args)
	if len(fields) == 0 {
		b.reply(chatID, "Usage: /checklist <plan> [add <label> | toggle <n>]")
		return
	}
	planID := fields[0]

	switch {
	case len(fields) >= 3 && fields[1] == "add":
		label := strings.Join(fields[2:], " ")
		if _, err := b.notesStore.AddChecklistItem(planID, label); err != nil {
			b.replyError(chatID, "adding checklist item", err)
			return
		}
	case len(fields) == 3 && fields[1] == "toggle":
		n, err := strconv.Atoi(fields[2])
		items, lerr := b.notesStore.Checklist(planID)
		if err != nil || lerr != nil || n < 1 || n > len(items) {
			b.reply(chatID, "Toggle by the item number shown in the list.")
			return
		}
		if err := b.notesStore.ToggleChecklistItem(planID, items[n-1].ID); err != nil {
			b.replyError(chatID, "toggling checklist item", err)
			return
		}
	}

	items, err := b.notesStore.Checklist(planID)
	if err != nil {
		b.replyError(chatID, "loading checklist", err)
		return
	}

	var sb strings.Builder
	sb.WriteString("☑️ *Checklist*\n\n")
	if len(items) == 0 {
		sb.WriteString("_Empty_")
	}
	for i, item := range items {
		mark := "☐"
		if item.Done {
			mark = "☑"
		}
		sb.WriteString(fmt.Sprintf("%d. %s %s\n", i+1, mark, item.Label))
	}
	b.reply(chatID, sb.String())
}

func (b *Bot) handleJournal(chatID int64, args string) {
	parts := strings.SplitN(args, " ", 2)
	if parts[0] == "" {
		b.reply(chatID, "Usage: /journal <plan> [text]")
		return
	}
	planID := parts[0]

	if len(parts) == 1 {
		journal, err := b.notesStore.Journal(planID)
		if err != nil {
			b.replyError(chatID, "loading journal", err)
			return
		}
		if journal == "" {
			journal = "_Empty_"
		}
		b.reply(chatID, "📓 *Journal*\n\n"+journal)
		return
	}

	if err := b.notesStore.SaveJournal(planID, parts[1]); err != nil {
		b.replyError(chatID, "saving journal", err)
		return
	}
	if err := b.metricsStore.Record(metrics.EventDocumentWrite); err != nil {
		log.Printf("Warning: failed to record journal write: %v", err)
	}
	b.reply(chatID, "📓 Journal saved.")
}

func (b *Bot) handleExport(ctx context.Context, chatID int64, planID string) {
	path, err := b.application.ExportTrip(ctx, planID)
	if err != nil {
		b.replyError(chatID, "exporting trip", err)
		return
	}

	doc := tgbotapi.NewDocument(chatID, tgbotapi.FilePath(path))
	doc.Caption = "🧳 Your itinerary"
	if _, err := b.api.Send(doc); err != nil {
		log.Printf("Failed to send export document: %v", err)
		b.reply(chatID, fmt.Sprintf("✅ Exported to `%s`.", path))
	}
}

func (b *Bot) handlePublish(ctx context.Context, chatID int64, planID string) {
	post, err := b.application.PublishTrip(ctx, planID, true)
	if err != nil {
		b.replyError(chatID, "publishing trip", err)
		return
	}
	url := post.URL
	if url == "" {
		url = fmt.Sprintf("%s/%s", b.cfg.GhostURL, post.ID)
	}
	b.reply(chatID, fmt.Sprintf("✅ *Published!*\n\n*Title:* %s\n*URL:* %s", post.Title, url))
}

func (b *Bot) handleSuggest(ctx context.Context, chatID int64, planID string) {
	statusText := "💡 *Thinking...* \n(Drafting visit notes for your stops)"
	replyMsg := tgbotapi.NewMessage(chatID, statusText)
	replyMsg.ParseMode = "Markdown"
	sentMsg, err := b.api.Send(replyMsg)
	if err != nil {
		log.Printf("Failed to send initial reply: %v", err)
		return
	}

	suggestion, err := b.application.SuggestNotes(ctx, planID)
	var finalText string
	if err != nil {
		log.Printf("Error generating suggestions: %v", err)
		safeErr := strings.ReplaceAll(err.Error(), "`", "'")
		finalText = fmt.Sprintf("❌ *Error generating suggestions:*\n```\n%v\n```", safeErr)
	} else {
		finalText = "💡 *Suggested notes*\n\n" + suggestion
	}
	edit := tgbotapi.NewEditMessageText(chatID, sentMsg.MessageID, finalText)
	edit.ParseMode = "Markdown"
	b.api.Send(edit)
}

// handleWatch subscribes the chat to the active-plan feed: the current
// list is sent immediately and again after every write, until
// /unwatch. One feed per chat.
func (b *Bot) handleWatch(chatID int64) {
	b.watchMu.Lock()
	if _, ok := b.watchers[chatID]; ok {
		b.watchMu.Unlock()
		b.reply(chatID, "👀 Already watching. Stop with /unwatch.")
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	b.watchers[chatID] = cancel
	b.watchMu.Unlock()

	plans := feed.Watch(ctx, b.hub, database.CollectionPlans,
		func(ctx context.Context) ([]trip.Plan, error) {
			return b.planRepo.ListByStatus(ctx, trip.StatusActive)
		},
		trip.ByStartDateAsc)

	go func() {
		defer b.handleUnwatch(chatID)
		for snap := range plans.Updates() {
			if err := b.metricsStore.Record(metrics.EventSnapshotDelivered); err != nil {
				log.Printf("Warning: failed to record snapshot event: %v", err)
			}
			if snap.State == feed.Error {
				log.Printf("Watch feed error for chat %d: %v", chatID, snap.Err)
				continue
			}

			var sb strings.Builder
			sb.WriteString("👀 *Active Trips*\n\n")
			if len(snap.Items) == 0 {
				sb.WriteString("_None_")
			}
			for _, p := range snap.Items {
				sb.WriteString(fmt.Sprintf("• *%s* (%s)\n", p.Name, trip.FormatDateRange(p.StartDate, p.EndDate)))
			}
			b.reply(chatID, sb.String())
		}
	}()
}

func (b *Bot) handleUnwatch(chatID int64) {
	b.watchMu.Lock()
	cancel, ok := b.watchers[chatID]
	if ok {
		delete(b.watchers, chatID)
	}
	b.watchMu.Unlock()
	if ok {
		cancel()
	}
}

func (b *Bot) handleMetricsRequest(msg *tgbotapi.Message) {
	if msg.From.ID != b.cfg.AdminTelegramID {
		b.reply(msg.Chat.ID, "⛔ *Access Denied*: Admin only.")
		return
	}

	usage, err := b.metricsStore.GetDailyUsage(7)
	if err != nil {
		b.reply(msg.Chat.ID, "❌ Error fetching metrics.")
		return
	}

	health := metrics.GetSysHealth("data")

	var sb strings.Builder
	sb.WriteString("📊 *Usage & Health Report*\n\n")

	sb.WriteString("🗓 *Recent Activity*\n")
	if len(usage) == 0 {
		sb.WriteString("_No data yet_\n")
	}
	for _, d := range usage {
		sb.WriteString(fmt.Sprintf("• *%s* %s: %d\n", d.Date, d.Event, d.Count))
	}

	sb.WriteString("\n🧠 *System Health*\n")
	sb.WriteString(fmt.Sprintf("• RAM: %dMB (Alloc) / %dMB (Sys)\n", health.AllocMB, health.SysMB))
	sb.WriteString(fmt.Sprintf("• Goroutines: %d\n", health.Goroutines))
	sb.WriteString(fmt.Sprintf("• Disk Data: %s\n", health.StoreSize))

	b.reply(msg.Chat.ID, sb.String())
}
