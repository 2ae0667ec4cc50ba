package slack

import (
	"fmt"
	"strings"

	slackapi "github.com/slack-go/slack"

	"github.com/jonny/kube-actions/internal/domain/port/outbound"
)

const maxErrorLen = 2000

// statusEmoji maps an outcome status to an emoji prefix.
func statusEmoji(status string) string {
	switch strings.ToLower(status) {
	case "full_success":
		return ":large_green_circle:"
	case "partial_success":
		return ":large_yellow_circle:"
	case "failure":
		return ":red_circle:"
	default:
		return ":large_blue_circle:"
	}
}

// BuildOutcomeBlocks constructs Block Kit blocks for an orchestration outcome.
func BuildOutcomeBlocks(n outbound.OutcomeNotification) []slackapi.Block {
	header := slackapi.NewSectionBlock(
		slackapi.NewTextBlockObject(slackapi.MarkdownType,
			fmt.Sprintf("%s *%s* %s", statusEmoji(n.Status), n.Action, strings.ReplaceAll(n.Status, "_", " ")), false, false),
		nil, nil,
	)

	target := strings.Join(n.Names, ", ")
	if target == "" {
		target = "-"
	}
	fields := []*slackapi.TextBlockObject{
		slackapi.NewTextBlockObject(slackapi.MarkdownType,
			fmt.Sprintf("*Namespace*\n%s", n.Namespace), false, false),
		slackapi.NewTextBlockObject(slackapi.MarkdownType,
			fmt.Sprintf("*Resource*\n%s %s", n.Kind, target), false, false),
		slackapi.NewTextBlockObject(slackapi.MarkdownType,
			fmt.Sprintf("*Error kind*\n%s", n.ErrorKind), false, false),
		slackapi.NewTextBlockObject(slackapi.MarkdownType,
			fmt.Sprintf("*Execution ID*\n`%s`", n.ExecutionID), false, false),
	}

	blocks := []slackapi.Block{
		header,
		slackapi.NewDividerBlock(),
		slackapi.NewSectionBlock(nil, fields, nil),
	}

	if n.Error != "" {
		msg := n.Error
		if len(msg) > maxErrorLen {
			msg = msg[:maxErrorLen] + "..."
		}
		blocks = append(blocks, slackapi.NewSectionBlock(
			slackapi.NewTextBlockObject(slackapi.MarkdownType,
				fmt.Sprintf("*Error*\n```\n%s\n```", msg), false, false),
			nil, nil,
		))
	}

	if len(n.Commands) > 0 {
		cmds := make([]string, 0, len(n.Commands))
		for _, c := range n.Commands {
			cmds = append(cmds, fmt.Sprintf("`%s`", c))
		}
		blocks = append(blocks, slackapi.NewContextBlock("",
			slackapi.NewTextBlockObject(slackapi.MarkdownType, strings.Join(cmds, "\n"), false, false),
		))
	}

	return blocks
}
