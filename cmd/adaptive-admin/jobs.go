package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/openlearn/adaptive-api/internal/bootstrap"
	"github.com/openlearn/adaptive-api/internal/core"
	"github.com/openlearn/adaptive-api/internal/data"
	"github.com/openlearn/adaptive-api/internal/domain/model"
	"github.com/openlearn/adaptive-api/internal/util"
)

const scanBatchSize = 200

func allFeatures() []core.Feature {
	return []core.Feature{
		core.FeatureSkillTree,
		core.FeatureLessonSkills,
		core.FeatureDiagnostic,
		core.FeatureQuestionAnalysis,
		core.FeatureRelevance,
		core.FeatureExplanations,
	}
}

//nolint:ireturn // returning redis.UniversalClient keeps client selection flexible.
func connect(cmdCtx *commandContext) (redis.UniversalClient, error) {
	return bootstrap.ConnectRedis(cmdCtx.Config.Redis, cmdCtx.Logger)
}

func runJobs(cmdCtx *commandContext, _ []string) error {
	client, err := connect(cmdCtx)
	if err != nil {
		return err
	}
	defer client.Close()

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	if err := writef(w, "FEATURE\tSUBJECT\tBATCH\tSTATUS\tAGE\n"); err != nil {
		return err
	}

	found := 0
	for _, feature := range allFeatures() {
		pattern := core.JobKey(feature, "*")
		keys, err := scanKeys(cmdCtx.Ctx, client, pattern)
		if err != nil {
			return err
		}
		for _, key := range keys {
			raw, err := client.Get(cmdCtx.Ctx, key).Bytes()
			if err != nil {
				if errors.Is(err, redis.Nil) {
					continue
				}
				return fmt.Errorf("read %s: %w", key, err)
			}
			rec, err := model.DecodeJobRecord(raw)
			if err != nil {
				cmdCtx.Logger.Warn("undecodable job record", "key", key, "error", err)
				continue
			}
			subject := key[len(core.JobKey(feature, "")):]
			age := util.FormatAge(time.Since(time.Unix(rec.CreatedAt, 0)))
			if err := writef(w, "%s\t%s\t%s\t%s\t%s\n",
				feature, subject, rec.BatchID, rec.Status, age); err != nil {
				return err
			}
			found++
		}
	}
	if err := w.Flush(); err != nil {
		return err
	}
	return writef(os.Stdout, "%d in-flight job(s)\n", found)
}

func runArtifacts(cmdCtx *commandContext, args []string) error {
	fs := flag.NewFlagSet("artifacts", flag.ContinueOnError)
	featureName := fs.String("feature", "", "restrict to one feature")
	if err := fs.Parse(args); err != nil {
		return err
	}

	features := allFeatures()
	if *featureName != "" {
		features = []core.Feature{core.Feature(*featureName)}
	}

	client, err := connect(cmdCtx)
	if err != nil {
		return err
	}
	defer client.Close()

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	if err := writef(w, "KEY\tBYTES\n"); err != nil {
		return err
	}
	for _, feature := range features {
		keys, err := scanKeys(cmdCtx.Ctx, client, core.ArtifactKey(feature, "*"))
		if err != nil {
			return err
		}
		for _, key := range keys {
			size, err := client.StrLen(cmdCtx.Ctx, key).Result()
			if err != nil {
				return fmt.Errorf("strlen %s: %w", key, err)
			}
			if err := writef(w, "%s\t%d\n", key, size); err != nil {
				return err
			}
		}
	}
	return w.Flush()
}

func runShow(cmdCtx *commandContext, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: adaptive-admin show <key>")
	}
	key := args[0]

	client, err := connect(cmdCtx)
	if err != nil {
		return err
	}
	defer client.Close()

	raw, err := client.Get(cmdCtx.Ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return fmt.Errorf("key %s not found", key)
		}
		return err
	}

	var pretty bytes.Buffer
	if err := json.Indent(&pretty, raw, "", "  "); err != nil {
		// Not JSON; print as-is.
		return writef(os.Stdout, "%s\n", raw)
	}
	return writef(os.Stdout, "%s\n", pretty.String())
}

func runClear(cmdCtx *commandContext, args []string) error {
	fs := flag.NewFlagSet("clear", flag.ContinueOnError)
	dryRun := fs.Bool("dry-run", false, "print keys without deleting")
	if err := fs.Parse(args); err != nil {
		return err
	}
	rest := fs.Args()
	if len(rest) != 2 {
		return errors.New("usage: adaptive-admin clear [-dry-run] <feature> <subject>")
	}
	feature, subject := core.Feature(rest[0]), rest[1]

	client, err := connect(cmdCtx)
	if err != nil {
		return err
	}
	defer client.Close()

	keys := []string{
		core.JobKey(feature, subject),
		core.ArtifactKey(feature, subject),
		core.ProgressKey(feature, subject),
	}
	if *dryRun {
		for _, key := range keys {
			if err := writef(os.Stdout, "would delete %s\n", key); err != nil {
				return err
			}
		}
		return nil
	}

	deleted, err := client.Del(cmdCtx.Ctx, keys...).Result()
	if err != nil {
		return fmt.Errorf("delete keys: %w", err)
	}
	return writef(os.Stdout, "deleted %d key(s) for %s/%s\n", deleted, feature, subject)
}

func runXP(cmdCtx *commandContext, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: adaptive-admin xp <student>")
	}
	studentID := args[0]

	client, err := connect(cmdCtx)
	if err != nil {
		return err
	}
	defer client.Close()

	kv := data.NewRedisKVRepo(client)

	raw, err := kv.Get(cmdCtx.Ctx, core.XPKey(studentID))
	if err != nil {
		return err
	}
	total := 0
	if raw != nil {
		decoded, err := model.DecodeXPTotal(raw)
		if err != nil {
			return err
		}
		total = decoded.Total
	}
	if err := writef(os.Stdout, "student %s: %d XP\n", studentID, total); err != nil {
		return err
	}

	members, err := kv.ListMembers(cmdCtx.Ctx, core.XPLogKey(studentID))
	if err != nil {
		return err
	}
	for _, member := range members {
		event, err := model.DecodeXPEvent(member)
		if err != nil {
			cmdCtx.Logger.Warn("undecodable xp event", "error", err)
			continue
		}
		when := time.Unix(event.AwardedAt, 0).Format(time.RFC3339)
		if err := writef(os.Stdout, "  %s  +%d  %s\n", when, event.Amount, event.Reason); err != nil {
			return err
		}
	}
	return nil
}

func scanKeys(ctx context.Context, client redis.UniversalClient, pattern string) ([]string, error) {
	var (
		keys   []string
		cursor uint64
	)
	for {
		batch, next, err := client.Scan(ctx, cursor, pattern, scanBatchSize).Result()
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", pattern, err)
		}
		keys = append(keys, batch...)
		if next == 0 {
			return keys, nil
		}
		cursor = next
	}
}
