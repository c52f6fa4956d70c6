/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"floorplanner/internal/backend"
	"floorplanner/internal/config"
	"floorplanner/internal/crash"
	"floorplanner/internal/domain"
	"floorplanner/internal/floorplan"
	applog "floorplanner/internal/log"
	"floorplanner/internal/planner"
	"floorplanner/internal/storage"
	"floorplanner/internal/ui"
	"floorplanner/internal/version"
)

func usage() {
	fmt.Println("Floor Planner")
	fmt.Printf("Version: %s\n", version.String())
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  floorplanner version|-v|--version            Show version")
	fmt.Println("  floorplanner catalog                          List item types and templates")
	fmt.Println("  floorplanner new <event> [template]           Start an empty draft for <event>")
	fmt.Println("  floorplanner add <event> <item>...            Add catalog items to the draft")
	fmt.Println("  floorplanner show <event>                     Print the draft's items")
	fmt.Println("  floorplanner drafts                           List saved drafts")
	fmt.Println("  floorplanner rm <event>                       Delete the draft")
	fmt.Println("  floorplanner export <event> <out.png|->       Rasterize the draft (\"-\" prints base64)")
	fmt.Println("  floorplanner pdf <event> <out.pdf>            Write the draft as PDF")
	fmt.Println("  floorplanner upload <event> <vendor>          Send the floor plan to a vendor")
	fmt.Println("  floorplanner events|vendors                   List backend events or vendors")
	fmt.Println("  floorplanner login [subject]                  Fetch a backend token into the keyring")
	fmt.Println("  floorplanner serve                            Run the backend server")
	fmt.Println("  floorplanner ui [<event>]                     Launch desktop UI (build with -tags fyne for full UI)")
}

// rescue hands the open session, if any, to crash.Recover.
type rescue struct{ s *planner.Session }

func (r *rescue) Owner() string {
	if r.s == nil {
		return ""
	}
	return r.s.Owner()
}

func (r *rescue) Draft() domain.Draft {
	if r.s == nil {
		return domain.Draft{}
	}
	return r.s.Draft()
}

func fail(l *slog.Logger, msg string, err error) {
	l.Error(msg, slog.Any("err", err))
	fmt.Println("Error:", err)
	os.Exit(1)
}

func need(args []string, n int, what string) {
	if len(args) < n {
		fmt.Println(what)
		usage()
		os.Exit(2)
	}
}

func logOptions(c config.LoggingConfig) applog.Options {
	return applog.Options{Level: c.Level, Format: c.Format, AddSource: c.Source, File: c.File}
}

func main() {
	cfg, token, err := config.Load()
	applog.Init(logOptions(cfg.Logging))
	l := applog.WithComponent("cli")
	if err != nil {
		l.Warn("config", slog.Any("err", err))
	}
	var r rescue
	defer crash.Recover(cfg.Drafts.Dir, &r)

	ctx := context.Background()
	args := os.Args
	l.Debug("start", slog.Int("args", len(args)))
	if len(args) < 2 {
		usage()
		return
	}

	// open loads the config-backed session and, when owner is set, its draft.
	open := func(owner string, requireDraft bool) *planner.Session {
		s, err := planner.OpenSession(cfg, token)
		if err != nil {
			fail(l, "open session", err)
		}
		r.s = s
		if owner == "" {
			return s
		}
		s.SelectOwner(owner)
		if err := s.LoadLocal(ctx); err != nil {
			if !errors.Is(err, storage.ErrNoDraft) || requireDraft {
				fail(l, "load draft", err)
			}
		}
		return s
	}

	switch args[1] {
	case "version", "--version", "-v":
		fmt.Println("Floor Planner")
		fmt.Println(version.String())
	case "catalog":
		fmt.Println("Items:")
		for _, k := range floorplan.PrototypeKeys() {
			p, _ := floorplan.Prototype(k)
			fmt.Printf("  %-16s %-14s %4.0fx%-4.0f %s\n", k, p.Type.Label(), p.W, p.H, p.Shape)
		}
		fmt.Println("Templates:")
		for _, t := range floorplan.Templates() {
			fmt.Printf("  %-16s %s\n", t.ID, t.Name)
		}
	case "new":
		need(args, 3, "new requires <event>")
		s := open("", false)
		defer func() { _ = s.Close() }()
		s.SelectOwner(args[2])
		if len(args) >= 4 && !s.SetTemplate(args[3]) && s.Scene().Template() != args[3] {
			fail(l, "new", fmt.Errorf("unknown template %q", args[3]))
		}
		if err := s.SaveLocal(ctx); err != nil {
			fail(l, "save draft", err)
		}
		fmt.Printf("Created draft for %s (template %s)\n", args[2], s.Scene().Template())
	case "add":
		need(args, 4, "add requires <event> and at least one <item>")
		s := open(args[2], false)
		defer func() { _ = s.Close() }()
		for _, key := range args[3:] {
			it, err := s.AddItem(key)
			if err != nil {
				fail(l, "add item", err)
			}
			fmt.Printf("Added %s %s at (%.0f, %.0f)\n", it.Type.Label(), it.ID, it.X, it.Y)
		}
		if err := s.SaveLocal(ctx); err != nil {
			fail(l, "save draft", err)
		}
	case "show":
		need(args, 3, "show requires <event>")
		s := open(args[2], true)
		defer func() { _ = s.Close() }()
		fmt.Printf("Template: %s\n", s.Scene().Template())
		for _, it := range s.Scene().Items() {
			fmt.Printf("  %s  %-14s %4.0fx%-4.0f at (%4.0f, %4.0f) rot %5.1f\n", it.ID, it.Type.Label(), it.W, it.H, it.X, it.Y, it.Rotation)
		}
	case "drafts":
		s := open("", false)
		defer func() { _ = s.Close() }()
		keys, err := s.DraftKeys(ctx)
		if err != nil {
			fail(l, "list drafts", err)
		}
		for _, k := range keys {
			fmt.Println(k)
		}
	case "rm":
		need(args, 3, "rm requires <event>")
		s := open("", false)
		defer func() { _ = s.Close() }()
		s.SelectOwner(args[2])
		if err := s.DeleteLocal(ctx); err != nil {
			fail(l, "delete draft", err)
		}
		fmt.Println("Deleted draft for", args[2])
	case "export":
		need(args, 4, "export requires <event> and <out.png>")
		s := open(args[2], true)
		defer func() { _ = s.Close() }()
		payload, err := s.ExportPNG(ctx)
		if err != nil {
			fail(l, "export", err)
		}
		if args[3] == "-" {
			fmt.Println(payload.Base64)
			return
		}
		if err := os.WriteFile(args[3], payload.PNG, 0o644); err != nil {
			fail(l, "write png", err)
		}
		fmt.Printf("Wrote %s (%d bytes)\n", args[3], len(payload.PNG))
	case "pdf":
		need(args, 4, "pdf requires <event> and <out.pdf>")
		s := open(args[2], true)
		defer func() { _ = s.Close() }()
		f, err := os.Create(args[3])
		if err != nil {
			fail(l, "create pdf", err)
		}
		if err := s.ExportPDF(ctx, f); err != nil {
			_ = f.Close()
			fail(l, "write pdf", err)
		}
		if err := f.Close(); err != nil {
			fail(l, "close pdf", err)
		}
		fmt.Println("Wrote", args[3])
	case "upload":
		need(args, 4, "upload requires <event> and <vendor>")
		s := open(args[2], true)
		defer func() { _ = s.Close() }()
		uctx, cancel := context.WithTimeout(ctx, cfg.Backend.Timeout())
		defer cancel()
		rec, err := s.Upload(uctx, args[3])
		if err != nil {
			fail(l, "upload", err)
		}
		fmt.Printf("Uploaded %s\n  url: %s\n  at:  %s\n", rec.Path, rec.URL, rec.UploadedAt.Format(time.RFC3339))
	case "events", "vendors":
		s := open("", false)
		defer func() { _ = s.Close() }()
		lctx, cancel := context.WithTimeout(ctx, cfg.Backend.Timeout())
		defer cancel()
		if args[1] == "events" {
			events, err := s.LoadEvents(lctx)
			if err != nil {
				fail(l, "list events", err)
			}
			for _, ev := range events {
				fmt.Printf("%s  %-10s %s\n", ev.ID, ev.Date, ev.Name)
			}
			return
		}
		vendors, err := s.LoadVendors(lctx)
		if err != nil {
			fail(l, "list vendors", err)
		}
		for _, v := range vendors {
			fmt.Printf("%s  %-12s %s\n", v.ID, v.Category, v.Name)
		}
	case "login":
		subject := cfg.General.UserID
		if len(args) >= 3 {
			subject = args[2]
		}
		c := backend.NewClientFromConfig(cfg.Backend, "")
		tok, err := c.IssueToken(ctx, subject, 0)
		if err != nil {
			fail(l, "login", err)
		}
		if err := config.Save(cfg, tok.Token); err != nil {
			fail(l, "store token", err)
		}
		fmt.Println("Token stored; expires", tok.ExpiresAt)
	case "serve":
		sctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
		defer stop()
		if err := backend.Serve(sctx, cfg.Server); err != nil {
			fail(l, "serve", err)
		}
	case "ui":
		var owner string
		if len(args) >= 3 {
			owner = strings.TrimSpace(args[2])
		}
		if err := ui.Run(owner); err != nil {
			fmt.Println("Error:", err)
			os.Exit(1)
		}
	default:
		usage()
		os.Exit(2)
	}
}
