package telegram

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"

	"github.com/pribylovaa/match-bot/internal/transport/http/httperr"
	"github.com/pribylovaa/match-bot/internal/transport/http/middleware"
	"github.com/pribylovaa/match-bot/pkg/log"
)

// Handler — сервисный слой, принимающий события. Ошибки обрабатываются внутри.
type Handler interface {
	OnIncomingText(ctx context.Context, userID int64, username, text string)
	OnIncomingMedia(ctx context.Context, userID int64, username, mediaRef string)
	OnControlSelected(ctx context.Context, userID int64, username, token string)
}

// Dispatcher раздаёт апдейты обработчику по шардам: апдейты одного пользователя
// попадают в один шард и обрабатываются строго в порядке поступления, разные шарды работают параллельно.
type Dispatcher struct {
	api     API
	handler Handler
	shards  []chan job

	mu      sync.RWMutex
	stopped bool

	pending sync.WaitGroup
	workers sync.WaitGroup
}

type job struct {
	ctx      context.Context
	updateID int
	ev       Event
}

// shardQueue — глубина очереди шарда; при заполнении Dispatch блокируется.
const shardQueue = 32

// NewDispatcher создаёт Dispatcher и запускает workers воркеров (по одному на шард).
// Остановка: Stop.
func NewDispatcher(api API, h Handler, workers int) *Dispatcher {
	if workers <= 0 {
		workers = 1
	}

	d := &Dispatcher{api: api, handler: h, shards: make([]chan job, workers)}
	for i := range d.shards {
		ch := make(chan job, shardQueue)
		d.shards[i] = ch

		d.workers.Add(1)
		go d.work(ch)
	}

	return d
}

// Poll получает апдейты long-poll'ом до отмены ctx, затем дожидается обработки начатых.
func (d *Dispatcher) Poll(ctx context.Context, timeout time.Duration) {
	const op = "telegram/Dispatcher/Poll"
	lg := log.From(ctx)

	cfg := tgbotapi.NewUpdate(0)
	cfg.Timeout = int(timeout.Seconds())

	updates := d.api.GetUpdatesChan(cfg)
	lg.Info("polling_start", slog.String("op", op), slog.Duration("timeout", timeout))

	defer func() {
		d.api.StopReceivingUpdates()
		d.Wait()
		lg.Info("polling_stop", slog.String("op", op))
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case u, ok := <-updates:
			if !ok {
				return
			}
			d.Dispatch(ctx, u)
		}
	}
}

// Webhook — http.Handler для режима webhook. Апдейт обрабатывается асинхронно
// в контексте base (ответ Telegram не ждёт обработки).
func (d *Dispatcher) Webhook(base context.Context) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, err := d.api.HandleUpdate(r)
		if err != nil {
			log.From(r.Context()).Warn("webhook_bad_update", slog.String("err", err.Error()))
			httperr.WriteError(w, r, httperr.ErrBadRequest)

			return
		}

		ctx := base
		if rid := middleware.RequestIDFrom(r.Context()); rid != "" {
			ctx = middleware.WithRequestID(ctx, rid)
		}
		d.Dispatch(ctx, *u)

		w.WriteHeader(http.StatusOK)
	})
}

// Dispatch ставит апдейт в очередь шарда его пользователя, блокируясь, пока очередь полна.
// Нерелевантные апдейты и апдейты после Stop пропускаются.
func (d *Dispatcher) Dispatch(ctx context.Context, u tgbotapi.Update) {
	ev, ok := FromUpdate(u)
	if !ok {
		return
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.stopped {
		return
	}

	d.pending.Add(1)
	select {
	case d.shardOf(ev.UserID) <- job{ctx: ctx, updateID: u.UpdateID, ev: ev}:
	case <-ctx.Done():
		d.pending.Done()
	}
}

// Wait дожидается обработки всех поставленных в очередь апдейтов.
func (d *Dispatcher) Wait() { d.pending.Wait() }

// Stop закрывает очереди и дожидается, пока воркеры разберут остаток.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	if !d.stopped {
		d.stopped = true
		for _, ch := range d.shards {
			close(ch)
		}
	}
	d.mu.Unlock()

	d.workers.Wait()
}

func (d *Dispatcher) shardOf(userID int64) chan<- job {
	return d.shards[uint64(userID)%uint64(len(d.shards))]
}

func (d *Dispatcher) work(ch <-chan job) {
	defer d.workers.Done()

	for j := range ch {
		d.handle(j.ctx, j.updateID, j.ev)
		d.pending.Done()
	}
}

func (d *Dispatcher) handle(ctx context.Context, updateID int, ev Event) {
	rid := middleware.RequestIDFrom(ctx)
	if rid == "" {
		rid = uuid.NewString()
		ctx = middleware.WithRequestID(ctx, rid)
	}
	ctx = log.With(ctx, "request_id", rid, "update_id", updateID)

	defer func() {
		if rec := recover(); rec != nil {
			log.From(ctx).Error("panic", slog.Any("reason", rec))
		}
	}()

	switch ev.Kind {
	case KindText:
		d.handler.OnIncomingText(ctx, ev.UserID, ev.Username, ev.Text)
	case KindMedia:
		d.handler.OnIncomingMedia(ctx, ev.UserID, ev.Username, ev.MediaRef)
	case KindControl:
		d.handler.OnControlSelected(ctx, ev.UserID, ev.Username, ev.Token)

		// снимаем «часики» с кнопки.
		if _, err := d.api.Request(tgbotapi.NewCallback(ev.CallbackID, "")); err != nil {
			log.From(ctx).Debug("callback_answer_failed", slog.String("err", err.Error()))
		}
	}
}
