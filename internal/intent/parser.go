// Package intent turns natural-language calendar requests into typed
// calendar operations. The LLM only classifies and extracts fields; all
// date arithmetic and event lookups happen here.
package intent

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/kalambet/agente/internal/calendar"
	"github.com/kalambet/agente/internal/llm"
	"github.com/kalambet/agente/internal/store"
)

// Chatter is the slice of the LLM service the parser needs.
type Chatter interface {
	GenerateMessages(ctx context.Context, systemPrompt string, messages []llm.Message) (string, error)
}

// Intent is the structured extraction the model returns. Empty fields
// mean the user did not say.
type Intent struct {
	Action     string        `json:"action"`
	Title      string        `json:"title"`
	Date       string        `json:"date"`
	StartTime  string        `json:"start_time"`
	EndTime    string        `json:"end_time"`
	EventID    string        `json:"event_id"`
	RangeStart string        `json:"range_start"`
	RangeEnd   string        `json:"range_end"`
	Update     *intentUpdate `json:"update"`
}

type intentUpdate struct {
	Title     string `json:"title"`
	Date      string `json:"date"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

// Parser extracts a calendar intent from a user turn and executes it
// against the calendar client. The reply is always user-facing Spanish.
type Parser struct {
	llm    Chatter
	cal    calendar.Client
	loc    *time.Location
	now    func() time.Time
	logger *slog.Logger
}

func NewParser(ch Chatter, cal calendar.Client, loc *time.Location) *Parser {
	if loc == nil {
		loc = time.UTC
	}
	return &Parser{
		llm:    ch,
		cal:    cal,
		loc:    loc,
		now:    time.Now,
		logger: slog.Default(),
	}
}

// Handle classifies text and, when it is a calendar request, performs the
// operation. handled is false when no calendar client is wired or the
// model saw no calendar action; the caller then falls through to plain
// generation. An error means the LLM itself failed.
func (p *Parser) Handle(ctx context.Context, userID, text string, history []llm.Message) (reply string, handled bool, err error) {
	if p.cal == nil {
		return "", false, nil
	}

	messages := append(append([]llm.Message{}, history...), llm.Message{Role: store.RoleUser, Content: text})
	raw, err := p.llm.GenerateMessages(ctx, p.systemPrompt(), messages)
	if err != nil {
		return "", false, fmt.Errorf("extracting calendar intent: %w", err)
	}

	intent, ok := parseIntent(raw)
	if !ok || intent.Action == "" || intent.Action == "none" {
		return "", false, nil
	}
	p.normalizeDates(&intent, text)

	switch intent.Action {
	case "create":
		return p.create(ctx, userID, intent), true, nil
	case "list":
		return p.list(ctx, userID, intent), true, nil
	case "delete":
		return p.delete(ctx, userID, intent), true, nil
	case "edit":
		return p.edit(ctx, userID, intent), true, nil
	default:
		return "", false, nil
	}
}

func (p *Parser) systemPrompt() string {
	today := p.now().In(p.loc).Format("2006-01-02")
	return fmt.Sprintf(`Eres un clasificador de intenciones de calendario. Hoy es %s (zona horaria %s).
Analiza el último mensaje del usuario y responde SOLO con un objeto JSON, sin texto adicional.

Formato:
{"action": "create|list|edit|delete|none",
 "title": "título del evento",
 "date": "YYYY-MM-DD",
 "start_time": "HH:MM",
 "end_time": "HH:MM",
 "event_id": "id si el usuario lo menciona",
 "range_start": "YYYY-MM-DD",
 "range_end": "YYYY-MM-DD",
 "update": {"title": "", "date": "", "start_time": "", "end_time": ""}}

Reglas:
- Usa "none" si el mensaje no trata de crear, listar, editar o eliminar eventos.
- Omite los campos que el usuario no mencione.
- Usa horas en formato 24h.
- "update" solo aplica a la acción "edit" y lleva únicamente los cambios pedidos.`, today, p.loc.String())
}

// parseIntent decodes the model output, tolerating prose around the JSON
// object by cutting from the first '{' to the last '}'.
func parseIntent(raw string) (Intent, bool) {
	var intent Intent
	if err := json.Unmarshal([]byte(raw), &intent); err == nil {
		return intent, true
	}
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return Intent{}, false
	}
	if err := json.Unmarshal([]byte(raw[start:end+1]), &intent); err != nil {
		return Intent{}, false
	}
	return intent, true
}

// normalizeDates re-anchors model dates to the present and cleans up
// clock fragments. Explicit years in the user text are left alone.
func (p *Parser) normalizeDates(intent *Intent, userText string) {
	now := p.now()
	intent.Date = adjustYearIfMissing(intent.Date, userText, now, p.loc)
	intent.RangeStart = adjustYearIfMissing(intent.RangeStart, userText, now, p.loc)
	intent.RangeEnd = adjustYearIfMissing(intent.RangeEnd, userText, now, p.loc)
	intent.StartTime = parseClock(intent.StartTime)
	intent.EndTime = parseClock(intent.EndTime)
	if intent.Update != nil {
		intent.Update.Date = adjustYearIfMissing(intent.Update.Date, userText, now, p.loc)
		intent.Update.StartTime = parseClock(intent.Update.StartTime)
		intent.Update.EndTime = parseClock(intent.Update.EndTime)
	}
}

func (p *Parser) create(ctx context.Context, userID string, intent Intent) string {
	title := intent.Title
	if title == "" {
		title = "Evento"
	}
	if intent.Date == "" || intent.StartTime == "" {
		return "Para agendar necesito fecha y hora."
	}
	start, err := combineDateTime(intent.Date, intent.StartTime, p.loc)
	if err != nil {
		return "No pude interpretar la fecha u hora del evento."
	}
	end := start.Add(time.Hour)
	if intent.EndTime != "" {
		if e, err := combineDateTime(intent.Date, intent.EndTime, p.loc); err == nil && e.After(start) {
			end = e
		}
	}
	ev, err := p.cal.CreateEvent(ctx, userID, title, start, end, nil)
	if err != nil {
		p.logger.Error("calendar create failed", "user_id", userID, "error", err)
		return "No se pudo crear el evento."
	}
	return "Evento creado en el calendario:\n" + formatEvent(ev)
}

func (p *Parser) list(ctx context.Context, userID string, intent Intent) string {
	events, err := p.cal.ListEvents(ctx, userID)
	if err != nil {
		p.logger.Error("calendar list failed", "user_id", userID, "error", err)
		return "No se pudieron obtener los eventos del calendario."
	}

	from, to, ranged := p.rangeWindow(intent)
	var selected []store.Event
	for _, ev := range events {
		if ranged && (ev.StartsAt.Before(from) || !ev.StartsAt.Before(to)) {
			continue
		}
		selected = append(selected, ev)
	}
	if len(selected) == 0 {
		if ranged {
			return "No hay eventos en tu calendario para ese rango."
		}
		return "No hay eventos en tu calendario."
	}
	if len(selected) > 10 {
		selected = selected[:10]
	}
	lines := make([]string, len(selected))
	for i, ev := range selected {
		lines[i] = formatEvent(ev)
	}
	return "Eventos próximos:\n" + strings.Join(lines, "\n")
}

// rangeWindow derives the half-open [from, to) filter from the intent.
// A bare date means that whole day; a start with no end means one day.
func (p *Parser) rangeWindow(intent Intent) (from, to time.Time, ok bool) {
	day := 24 * time.Hour
	switch {
	case intent.RangeStart != "" && intent.RangeEnd != "":
		f, err1 := parseDate(intent.RangeStart, p.loc)
		t, err2 := parseDate(intent.RangeEnd, p.loc)
		if err1 != nil || err2 != nil {
			return time.Time{}, time.Time{}, false
		}
		return f, t.Add(day), true
	case intent.RangeStart != "":
		f, err := parseDate(intent.RangeStart, p.loc)
		if err != nil {
			return time.Time{}, time.Time{}, false
		}
		return f, f.Add(day), true
	case intent.Date != "":
		f, err := parseDate(intent.Date, p.loc)
		if err != nil {
			return time.Time{}, time.Time{}, false
		}
		return f, f.Add(day), true
	default:
		return time.Time{}, time.Time{}, false
	}
}

func (p *Parser) delete(ctx context.Context, userID string, intent Intent) string {
	if intent.RangeStart != "" || intent.RangeEnd != "" {
		return p.deleteRange(ctx, userID, intent)
	}

	targets, msg := p.resolveTargets(ctx, userID, intent)
	if msg != "" {
		return msg
	}
	if len(targets) > 1 {
		return p.deleteAll(ctx, targets)
	}
	ev := targets[0]
	deleted, err := p.cal.DeleteEvent(ctx, ev.ID)
	if err != nil {
		p.logger.Error("calendar delete failed", "event_id", ev.ID, "error", err)
		return "No se pudo eliminar el evento."
	}
	if !deleted {
		return "Evento no encontrado."
	}
	return fmt.Sprintf("Evento eliminado: %s.", ev.Title)
}

func (p *Parser) deleteRange(ctx context.Context, userID string, intent Intent) string {
	events, err := p.cal.ListEvents(ctx, userID)
	if err != nil {
		p.logger.Error("calendar list failed", "user_id", userID, "error", err)
		return "No se pudo eliminar el evento."
	}
	from, to, ok := p.rangeWindow(intent)
	if !ok {
		return "No pude interpretar el rango de fechas."
	}
	var candidates []store.Event
	for _, ev := range events {
		if !ev.StartsAt.Before(from) && ev.StartsAt.Before(to) {
			candidates = append(candidates, ev)
		}
	}
	if len(candidates) == 0 {
		return "No hay eventos en ese rango para eliminar."
	}
	return p.deleteAll(ctx, candidates)
}

// deleteAll removes each candidate and reports only the ones that were
// actually deleted; individual failures are logged, not surfaced.
func (p *Parser) deleteAll(ctx context.Context, events []store.Event) string {
	var lines []string
	for _, ev := range events {
		deleted, err := p.cal.DeleteEvent(ctx, ev.ID)
		if err != nil {
			p.logger.Error("calendar delete failed", "event_id", ev.ID, "error", err)
			continue
		}
		if deleted {
			lines = append(lines, formatEvent(ev))
		}
	}
	if len(lines) == 0 {
		return "No se pudo eliminar ningún evento."
	}
	return fmt.Sprintf("Se eliminaron %d eventos:\n%s", len(lines), strings.Join(lines, "\n"))
}

func (p *Parser) edit(ctx context.Context, userID string, intent Intent) string {
	targets, msg := p.resolveTargets(ctx, userID, intent)
	if msg != "" {
		return msg
	}
	if len(targets) > 1 {
		if len(targets) > 5 {
			targets = targets[:5]
		}
		lines := make([]string, len(targets))
		for i, ev := range targets {
			lines[i] = formatEvent(ev)
		}
		return "Encontré varios eventos. Indica el id para editar:\n" + strings.Join(lines, "\n")
	}
	base := targets[0]

	upd, hasChanges := p.buildUpdate(base, intent)
	if !hasChanges {
		return "Indica qué cambios deseas aplicar (título o fecha/hora)."
	}
	ev, found, err := p.cal.UpdateEvent(ctx, base.ID, upd)
	if err != nil {
		p.logger.Error("calendar update failed", "event_id", base.ID, "error", err)
		return "No se pudo actualizar el evento."
	}
	if !found {
		return "Evento no encontrado."
	}
	return "Evento actualizado:\n" + formatEvent(ev)
}

// buildUpdate turns the intent's update block into a patch. A new start
// inherits the base date or clock for whichever half the user left out,
// and resets the end to start+1h unless an end was also given.
func (p *Parser) buildUpdate(base store.Event, intent Intent) (calendar.Update, bool) {
	var upd calendar.Update
	u := intent.Update
	if u == nil {
		u = &intentUpdate{}
	}

	if u.Title != "" {
		title := u.Title
		upd.Title = &title
	}

	if u.Date != "" || u.StartTime != "" {
		date := u.Date
		if date == "" {
			date = base.StartsAt.In(p.loc).Format("2006-01-02")
		}
		clock := u.StartTime
		if clock == "" {
			clock = base.StartsAt.In(p.loc).Format("15:04")
		}
		if start, err := combineDateTime(date, clock, p.loc); err == nil {
			upd.StartsAt = &start
			if u.EndTime != "" {
				if end, err := combineDateTime(date, u.EndTime, p.loc); err == nil && end.After(start) {
					upd.EndsAt = &end
				}
			}
			if upd.EndsAt == nil {
				end := start.Add(time.Hour)
				upd.EndsAt = &end
			}
		}
	} else if u.EndTime != "" {
		date := base.StartsAt.In(p.loc).Format("2006-01-02")
		if end, err := combineDateTime(date, u.EndTime, p.loc); err == nil && end.After(base.StartsAt) {
			upd.EndsAt = &end
		}
	}

	return upd, upd.Title != nil || upd.StartsAt != nil || upd.EndsAt != nil
}

// resolveTargets finds the event(s) the user means, by id when given and
// otherwise by fuzzy title plus optional date. A non-empty msg is the
// final user reply for lookup failures.
func (p *Parser) resolveTargets(ctx context.Context, userID string, intent Intent) ([]store.Event, string) {
	if intent.EventID != "" {
		ev, found, err := p.cal.GetEvent(ctx, intent.EventID, userID)
		if err != nil {
			p.logger.Error("calendar get failed", "event_id", intent.EventID, "error", err)
			return nil, "No se pudo consultar el evento."
		}
		if !found {
			return nil, "Evento no encontrado."
		}
		return []store.Event{ev}, ""
	}

	matches, err := p.findEventsByTitleDate(ctx, userID, intent.Title, intent.Date)
	if err != nil {
		p.logger.Error("calendar list failed", "user_id", userID, "error", err)
		return nil, "No se pudo consultar el evento."
	}
	if len(matches) == 0 {
		return nil, "No pude identificar el evento. Indica el id o más detalles."
	}
	return matches, ""
}

// findEventsByTitleDate narrows the user's events to the ones the request
// can mean: events on the named calendar day (in p.loc) when a date was
// given, then the first accent-folded title match when a title was given,
// otherwise all remaining candidates. An unparseable date filters nothing.
func (p *Parser) findEventsByTitleDate(ctx context.Context, userID, title, date string) ([]store.Event, error) {
	events, err := p.cal.ListEvents(ctx, userID)
	if err != nil {
		return nil, err
	}

	filtered := events
	if date != "" {
		if _, err := time.ParseInLocation("2006-01-02", date, p.loc); err == nil {
			filtered = nil
			for _, ev := range events {
				if ev.StartsAt.In(p.loc).Format("2006-01-02") == date {
					filtered = append(filtered, ev)
				}
			}
		}
	}

	if wanted := foldAccents(strings.TrimSpace(title)); wanted != "" {
		for _, ev := range filtered {
			have := foldAccents(ev.Title)
			if strings.Contains(have, wanted) || strings.Contains(wanted, have) {
				return []store.Event{ev}, nil
			}
		}
	}
	return filtered, nil
}

func formatEvent(ev store.Event) string {
	return fmt.Sprintf("- %s: %s (%s - %s)", ev.ID, ev.Title,
		ev.StartsAt.UTC().Format(time.RFC3339), ev.EndsAt.UTC().Format(time.RFC3339))
}
