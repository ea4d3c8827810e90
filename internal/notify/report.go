package notify

import (
	"fmt"
	"strings"
	"time"

	"github.com/minghuang/etfdca/internal/contracts"
)

// ReportInput carries everything the daily report mentions.
type ReportInput struct {
	Date           time.Time
	FXRate         float64
	FXFallbackUsed bool
	Signal         *contracts.SignalResult
	Snapshot       *contracts.MarketSnapshot
	Orders         []contracts.Order
	TotalFeeUSD    float64
	CashPoolStart  float64
	CashPoolEnd    float64
	BrokerResult   string
	Message        string
	Portfolio      []string
}

// Subject returns the email subject for one day's report.
func Subject(in ReportInput) string {
	return fmt.Sprintf("ETF 自动交易日报 %s %s", in.Date.Format("2006-01-02"), string(in.Signal.Trigger))
}

// BuildReport renders the plain-text daily report: one conclusion up front,
// then the trigger data, the reserve pool movement and the order sheet.
func BuildReport(in ReportInput) string {
	sig := in.Signal
	snap := in.Snapshot

	hasTrade := false
	var buyUSD float64
	var orderLines []string
	for _, o := range in.Orders {
		if o.Side != contracts.OrderSideBuy || o.Shares <= 0 {
			continue
		}
		hasTrade = true
		buyUSD += o.GrossUSD
		orderLines = append(orderLines, fmt.Sprintf(
			"- %s: 买入 %v 股；收盘价 %.2f USD；预计金额 %.2f USD；手续费≈%.2f USD",
			o.Ticker, o.Shares, o.PriceUSD, o.GrossUSD, o.FeeUSD))
	}
	if !hasTrade {
		orderLines = append(orderLines, "- 今日无下单")
	}

	action := "不交易"
	if hasTrade {
		action = "交易"
	}
	yesNo := func(b bool) string {
		if b {
			return "是"
		}
		return "否"
	}

	var b strings.Builder
	w := func(format string, args ...interface{}) {
		fmt.Fprintf(&b, format+"\n", args...)
	}

	w("ETF 自动交易日报（北京时间）")
	w("生成时间：%s", time.Now().In(beijing()).Format("2006-01-02 15:04:05"))
	w("对应美股收盘交易日：%s", in.Date.Format("2006-01-02"))
	w("")

	w("1) 今日结论")
	w("- 信号：%s", string(sig.Trigger))
	w("- 是否交易：%s", action)
	if in.Message != "" {
		w("- 说明：%s", in.Message)
	}
	buyUSDEst := 0.0
	if in.FXRate > 0 {
		buyUSDEst = sig.RecommendedCNY / in.FXRate
	}
	w("- 推荐买入总额：%.2f CNY（按 FX 约 %.2f USD）", sig.RecommendedCNY, buyUSDEst)
	fxNote := ""
	if in.FXFallbackUsed {
		fxNote = "（实时汇率获取失败，已使用备用值）"
	}
	w("- USD/CNY（当次使用）：%.6f%s", in.FXRate, fxNote)
	w("")

	w("2) 关键数据（用于触发规则）")
	w("- 基准收盘：%.2f；前收：%.2f", snap.BenchmarkClose, snap.BenchmarkPrevClose)
	w("- MA200：%.2f；收盘在 MA200 下方：%s", snap.MA200, yesNo(sig.BelowMA200))
	w("- 月内最高收盘：%.2f；月内回撤：%.2f%%", snap.MonthHighClose, sig.Drawdown*100)
	w("- 第三个周五兜底：%s", yesNo(sig.ThirdFriday))
	w("- 距离上次交易：%d 个交易日；冷却期满足：%s", sig.DaysSinceLast, yesNo(sig.CooldownOK))
	w("")

	w("3) 储备现金（待命资金）")
	w("- 起始余额：%.2f CNY", sig.ReserveBefore)
	w("- 本次增加：%.2f CNY", sig.ReserveAddCNY)
	w("- 本次使用：%.2f CNY", sig.ReserveUseCNY)
	w("- 零钱池：%.2f CNY → %.2f CNY", in.CashPoolStart, in.CashPoolEnd)
	w("")

	w("4) 今日下单清单（照单下单即可）")
	for _, line := range orderLines {
		w("%s", line)
	}
	w("")
	w("合计（估算）：")
	w("- 买入金额：%.2f USD", buyUSD)
	w("- 手续费：%.2f USD", in.TotalFeeUSD)
	w("- 预计占用现金：%.2f USD", buyUSD+in.TotalFeeUSD)
	w("")

	w("5) 组合 ETF 收盘价（用于下单计算）")
	var prices []string
	for _, t := range in.Portfolio {
		prices = append(prices, fmt.Sprintf("%s=%.2f", t, snap.Prices[t]))
	}
	w("- %s", strings.Join(prices, ", "))
	w("")

	w("6) 执行状态")
	w("- %s", in.BrokerResult)

	return b.String()
}

func beijing() *time.Location {
	loc, err := time.LoadLocation("Asia/Shanghai")
	if err != nil {
		return time.FixedZone("CST", 8*3600)
	}
	return loc
}
