package main

import (
	"context"
	"flag"
	"fmt"
	mrand "math/rand"
	"os"

	"github.com/spf13/viper"

	"github.com/mithrel/craftforum/internal/config"
	"github.com/mithrel/craftforum/internal/forum"
	"github.com/mithrel/craftforum/internal/wire"
	"github.com/mithrel/craftforum/pkg/api"
)

var bodies = []string{
	"Finally finished the **castle**. Screenshots below.\n\n![gate](https://example.com/gate.png)",
	"Does anyone know why my _redstone_ clock stops after a restart?\n\n```\n/gamerule doTileDrops true\n```",
	"Server rules:\n\n1. Be nice\n2. No griefing\n3. Ask before building near spawn",
	"> quoted from the wiki\n\nThis seems __wrong__ to me. See [the wiki](https://example.com/wiki).",
	"plain text with <angle brackets> & ampersands",
	"[center]Welcome to the new season![/center]\n\n---\n\nSeed is in the pinned post.",
}

var users = []string{"alice", "bob", "carol", "dave", "erin"}

func main() {
	cfgPath := flag.String("config", "", "path to config file")
	posts := flag.Int("posts", 50, "number of posts to create")
	flag.Parse()

	if err := run(context.Background(), *cfgPath, *posts); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfgPath string, total int) error {
	v := viper.New()
	if cfgPath != "" {
		v.SetConfigFile(cfgPath)
	}
	if err := config.Load(ctx, v); err != nil {
		return err
	}
	app, err := wire.BuildApp(ctx, v)
	if err != nil {
		return err
	}
	defer app.Close()

	// Deterministic seed for reproducible output
	mr := mrand.New(mrand.NewSource(42))

	boards := app.Forum.Boards()
	for i := 0; i < total; i++ {
		author := api.Viewer{Username: users[mr.Intn(len(users))]}
		in := forum.NewPost{
			Title:   fmt.Sprintf("Sample thread %03d", i+1),
			Content: bodies[mr.Intn(len(bodies))],
		}
		if len(boards) > 0 {
			b := boards[mr.Intn(len(boards))]
			if b.Locked {
				continue
			}
			in.Board = b.Name
		}
		p, err := app.Forum.CreatePost(ctx, author, in)
		if err != nil {
			return err
		}

		// Replies mostly answer recent comments so some chains run deep.
		var ids []api.ID
		for j := mr.Intn(8); j > 0; j-- {
			c := forum.NewComment{Content: bodies[mr.Intn(len(bodies))]}
			if len(ids) > 0 && mr.Float64() < 0.6 {
				c.ParentID = ids[len(ids)-1-mr.Intn(min(len(ids), 2))]
			}
			created, err := app.Forum.CreateComment(ctx, api.Viewer{Username: users[mr.Intn(len(users))]}, p.ID, c)
			if err != nil {
				return err
			}
			ids = append(ids, created.ID)
		}
		fmt.Println(p.ID)
	}
	return nil
}
