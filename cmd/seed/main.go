package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"drobe-backend/internal/config"
	"drobe-backend/internal/domain/ports/repository"
	pg "drobe-backend/internal/infra/db/postgres"
	"drobe-backend/internal/usecase"
)

// Applies the schema and seeds a sample curriculum tree for local development.

const schema = `
CREATE TABLE IF NOT EXISTS chat_sessions (
  id                TEXT PRIMARY KEY,
  level_description TEXT NOT NULL DEFAULT '',
  child_age         INT  NOT NULL,
  priming_message   TEXT,
  active            BOOLEAN NOT NULL DEFAULT TRUE,
  created_at        TIMESTAMPTZ NOT NULL DEFAULT NOW(),
  updated_at        TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS chat_messages (
  id           TEXT PRIMARY KEY,
  session_id   TEXT NOT NULL REFERENCES chat_sessions(id) ON DELETE CASCADE,
  sender       TEXT NOT NULL,
  kind         TEXT NOT NULL,
  text_content TEXT,
  blob_key     TEXT,
  created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_chat_messages_session ON chat_messages (session_id, created_at, id);

CREATE TABLE IF NOT EXISTS curricula (
  id           TEXT PRIMARY KEY,
  title        TEXT NOT NULL,
  description  TEXT NOT NULL DEFAULT '',
  country      TEXT NOT NULL,
  image_key    TEXT,
  translations JSONB NOT NULL DEFAULT '{}',
  active       BOOLEAN NOT NULL DEFAULT TRUE,
  created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
  updated_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS labels (
  id            TEXT PRIMARY KEY,
  curriculum_id TEXT NOT NULL REFERENCES curricula(id) ON DELETE CASCADE,
  title         TEXT NOT NULL,
  ord           INT  NOT NULL DEFAULT 0,
  translations  JSONB NOT NULL DEFAULT '{}',
  created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
  updated_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_labels_curriculum ON labels (curriculum_id, ord);

CREATE TABLE IF NOT EXISTS topics (
  id           TEXT PRIMARY KEY,
  label_id     TEXT NOT NULL REFERENCES labels(id) ON DELETE CASCADE,
  title        TEXT NOT NULL,
  description  TEXT NOT NULL DEFAULT '',
  content_link TEXT,
  image_key    TEXT,
  ord          INT  NOT NULL DEFAULT 0,
  translations JSONB NOT NULL DEFAULT '{}',
  active       BOOLEAN NOT NULL DEFAULT TRUE,
  created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
  updated_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_topics_label ON topics (label_id, ord);
`

func main() {
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	skipSeed := flag.Bool("schema-only", false, "apply schema without sample content")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, true)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, 4)
	if err != nil {
		log.Fatalf("postgres: %v", err)
	}
	defer pool.Close()

	if _, err := pool.Exec(ctx, schema); err != nil {
		log.Fatalf("apply schema: %v", err)
	}
	fmt.Println("schema applied")
	if *skipSeed {
		return
	}

	curriculumRepo := pg.NewCurriculumRepo(pool)
	labelRepo := pg.NewLabelRepo(pool)
	topicRepo := pg.NewTopicRepo(pool)
	uc := usecase.NewCurriculumUseCase(curriculumRepo, labelRepo, topicRepo, pg.NewTxManager(pool))

	existing, err := uc.ListCurricula(ctx, repository.CurriculumFilter{})
	if err != nil {
		log.Fatalf("list curricula: %v", err)
	}
	if len(existing) > 0 {
		fmt.Printf("%d curricula already present, no changes\n", len(existing))
		return
	}

	c, err := uc.CreateCurriculum(ctx, usecase.CurriculumInput{
		Title:       "Early Math",
		Description: "Numbers, counting and simple shapes for first learners.",
		Country:     "US",
	})
	if err != nil {
		log.Fatalf("create curriculum: %v", err)
	}

	labels := []struct {
		title  string
		topics []string
	}{
		{"Counting", []string{"Counting to five", "Counting to ten"}},
		{"Shapes", []string{"Circles and squares", "Triangles"}},
	}
	for i, l := range labels {
		lbl, err := uc.CreateLabel(ctx, usecase.LabelInput{CurriculumID: c.ID, Title: l.title, Order: i + 1})
		if err != nil {
			log.Fatalf("create label %q: %v", l.title, err)
		}
		for j, title := range l.topics {
			if _, err := uc.CreateTopic(ctx, usecase.TopicInput{LabelID: lbl.ID, Title: title, Order: j + 1}); err != nil {
				log.Fatalf("create topic %q: %v", title, err)
			}
		}
	}
	fmt.Printf("seeded curriculum %s with %d labels\n", c.ID, len(labels))
}
