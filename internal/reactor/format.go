package reactor

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"

	"github.com/nextlevelbuilder/agdabot/internal/bus"
)

// User-facing texts.
const (
	textStatsRefusal = "阿鸽打统计只能在群组和超级群组中使用。"
	textUnknownUser  = "未知用户"

	inlineTotalTitle        = "阿鸽打总次数"
	inlineTotalDescription  = "查看你的总阿鸽打次数"
	inlineRecentTitle       = "今日阿鸽打次数"
	inlineRecentDescription = "查看你今天的阿鸽打次数"
)

// formatStats renders the /stats reply. names and rows are parallel.
func formatStats(total, recent int64, names []string, counts []int64) string {
	lines := make([]string, len(names))
	for i := range names {
		lines[i] = fmt.Sprintf("%s - %d 次", names[i], counts[i])
	}
	return fmt.Sprintf("群友们总共阿鸽打了 %d 次，今天已经阿鸽打了 %d 次！\n\n今日阿鸽打排行榜：\n%s",
		total, recent, strings.Join(lines, "\n"))
}

// inlineResults builds the two personal-count answers for an inline query.
func inlineResults(total, recent int64) []bus.InlineResult {
	totalBody := fmt.Sprintf("我已经阿鸽打了 %d 次了！", total)
	recentBody := fmt.Sprintf("我今天已经阿鸽打了 %d 次了！", recent)
	return []bus.InlineResult{
		{ID: resultID(totalBody), Title: inlineTotalTitle, Description: inlineTotalDescription, Body: totalBody},
		{ID: resultID(recentBody), Title: inlineRecentTitle, Description: inlineRecentDescription, Body: recentBody},
	}
}

// resultID derives a stable inline result ID from the body text, so
// identical answers share an ID and Telegram can cache them.
func resultID(body string) string {
	return strconv.FormatUint(xxhash.Sum64String(body), 10)
}
