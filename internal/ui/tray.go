package ui

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/getlantern/systray"

	"github.com/courtside/courtside-agent/internal/studio"
)

type Tray struct {
	studio *studio.Service
	logger *slog.Logger

	statusItem *systray.MenuItem
	eventsItem *systray.MenuItem
	apiItem    *systray.MenuItem

	mu sync.Mutex

	apiAddr string
	onQuit  func()

	stop chan struct{}
}

type TrayConfig struct {
	Studio  *studio.Service
	Logger  *slog.Logger
	APIAddr string
	OnQuit  func()
}

func NewTray(cfg TrayConfig) *Tray {
	return &Tray{
		studio:  cfg.Studio,
		logger:  cfg.Logger,
		apiAddr: cfg.APIAddr,
		onQuit:  cfg.OnQuit,
		stop:    make(chan struct{}),
	}
}

func (t *Tray) Run() {
	systray.Run(t.onReady, t.onExit)
}

func (t *Tray) onReady() {
	systray.SetIcon(iconBytes)
	systray.SetTitle("Courtside")
	systray.SetTooltip("Courtside Agent")

	t.statusItem = systray.AddMenuItem("Status: Idle", "Current session status")
	t.statusItem.Disable()

	t.eventsItem = systray.AddMenuItem("Highlights: 0", "Detected highlight events")
	t.eventsItem.Disable()

	systray.AddSeparator()

	t.apiItem = systray.AddMenuItem("API: "+t.apiAddr, "Local API address")
	t.apiItem.Disable()

	systray.AddSeparator()

	quitItem := systray.AddMenuItem("Quit", "Quit Courtside Agent")

	go func() {
		ticker := time.NewTicker(2 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				t.refresh()
			case <-quitItem.ClickedCh:
				t.logger.Info("quit requested from tray")
				if t.onQuit != nil {
					t.onQuit()
				}
				systray.Quit()
				return
			case <-t.stop:
				systray.Quit()
				return
			}
		}
	}()

	t.logger.Info("system tray ready")
}

func (t *Tray) onExit() {
	t.logger.Info("system tray exiting")
}

func (t *Tray) refresh() {
	t.mu.Lock()
	defer t.mu.Unlock()

	status := t.studio.Status()

	label := "Idle"
	switch {
	case status.Exporting:
		label = "Exporting"
	case status.Processing:
		label = "Analyzing"
	case status.VideoLoaded:
		label = "Ready: " + status.Filename
	}
	t.statusItem.SetTitle("Status: " + label)
	t.eventsItem.SetTitle(fmt.Sprintf("Highlights: %d", status.EventCount))
}

func (t *Tray) Quit() {
	close(t.stop)
}
