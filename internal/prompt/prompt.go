package prompt

import (
	"fmt"
	"strings"

	"advisor-service/internal/models"
)

// SystemInstruction is the persona shared by every backend
const SystemInstruction = `You are a friendly crypto portfolio assistant for a Sui wallet owner.
Answer in plain language, keep replies short (at most a few paragraphs) and practical.
Never ask for private keys or seed phrases. When you are unsure, say so.
Base your answer on the wallet context below when it is relevant to the question.`

const (
	maxAssets       = 5
	maxTransactions = 5
	maxFieldLen     = 16
)

// BuildSystemPrompt combines the persona with a snapshot of the wallet.
// Output depends only on the inputs.
func BuildSystemPrompt(wallet *models.WalletData) string {
	var b strings.Builder
	b.WriteString(SystemInstruction)
	b.WriteString("\n\n")

	if wallet == nil {
		b.WriteString("Wallet context: not available.")
		return b.String()
	}

	b.WriteString("Wallet context:\n")
	fmt.Fprintf(&b, "- Address: %s\n", wallet.Address)
	fmt.Fprintf(&b, "- Balance: %s\n", wallet.Balance)
	fmt.Fprintf(&b, "- Asset count: %d\n", len(wallet.Assets))
	fmt.Fprintf(&b, "- Recent transactions: %d\n", len(wallet.Transactions))

	if len(wallet.Assets) > 0 {
		b.WriteString("\nAssets:\n")
		for i, a := range wallet.Assets {
			if i == maxAssets {
				fmt.Fprintf(&b, "- ... and %d more\n", len(wallet.Assets)-maxAssets)
				break
			}
			fmt.Fprintf(&b, "- %s: %s (%s)\n", symbolOrType(a), a.Balance, truncate(a.CoinType, 48))
		}
	}

	if len(wallet.Transactions) > 0 {
		b.WriteString("\nRecent transactions:\n")
		for i, tx := range wallet.Transactions {
			if i == maxTransactions {
				fmt.Fprintf(&b, "- ... and %d more\n", len(wallet.Transactions)-maxTransactions)
				break
			}
			status := "success"
			if !tx.Success {
				status = "failed"
			}
			fmt.Fprintf(&b, "- %s %s from %s, gas %s, %s, at %d\n",
				truncate(tx.Digest, maxFieldLen),
				tx.Kind,
				truncate(tx.Sender, maxFieldLen),
				tx.GasUsed,
				status,
				tx.Timestamp)
		}
	}

	return strings.TrimRight(b.String(), "\n")
}

// BuildEnhancedPrompt asks the next model in a chain to build on the previous answer
func BuildEnhancedPrompt(previousModel, previousResponse, question string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Another assistant (%s) already answered the question below.\n\n", previousModel)
	b.WriteString("Previous analysis:\n\"\"\"\n")
	b.WriteString(previousResponse)
	b.WriteString("\n\"\"\"\n\n")
	fmt.Fprintf(&b, "Original question: %s\n\n", question)
	b.WriteString("Review the previous analysis critically. Point out anything that is wrong, risky or missing, ")
	b.WriteString("then extend it with your own insights. Do not simply restate it.")
	return b.String()
}

func symbolOrType(a models.Asset) string {
	if a.Symbol != "" {
		return a.Symbol
	}
	return a.CoinType
}

// truncate keeps the first n runes
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
