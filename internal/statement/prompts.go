package statement

import (
	"encoding/json"

	"github.com/ppiankov/coinsight/internal/llm"
)

const locateInstruction = `You are trained to identify specific financial statements and their corresponding page numbers from the 'Contents' page of a report.
The target financial statements are:
1. CONSOLIDATED STATEMENT OF PROFIT OR LOSS or any similar variant
2. CONSOLIDATED STATEMENT OF COMPREHENSIVE INCOME or any similar variant
3. CONSOLIDATED STATEMENT OF FINANCIAL POSITION or any similar variant
4. CONSOLIDATED STATEMENT OF CHANGES IN EQUITY or any similar variant
5. CONSOLIDATED STATEMENT OF CASH FLOWS or any similar variant
From the given text, extract and return the pairings of these statements or their close variants with their corresponding page numbers.
The output format should be: [['Statement Name 1', 'Page Number 1'], ['Statement Name 2', 'Page Number 2'], ... ]`

const locateExampleUser = `CONTENTS CORPORATE INFORMATION 2 CHAIRMAN’S STATEMENT 4 MANAGEMENT DISCUSSION AND ANALYSIS 8 ENVIRONMENTAL, SOCIAL AND GOVERNANCE REPORT 76 CONSOLIDATED PROFIT OR LOSS STATEMENT 109 CONSOLIDATED COMPREHENSIVE INCOME 116 CONSOLIDATED FINANCIAL POSITION STATEMENT 119 CHANGES IN CONSOLIDATED EQUITY 121 CONSOLIDATED CASH FLOW STATEMENT 123`

var locateExampleAnswer = [][2]string{
	{"CONSOLIDATED PROFIT OR LOSS STATEMENT", "109"},
	{"CONSOLIDATED COMPREHENSIVE INCOME", "116"},
	{"CONSOLIDATED FINANCIAL POSITION STATEMENT", "119"},
	{"CHANGES IN CONSOLIDATED EQUITY", "121"},
	{"CONSOLIDATED CASH FLOW STATEMENT", "123"},
}

const refineInstruction = `You are trained to fine-tune the financial statement names and their starting page indices, given a list of draft financial statements and a dictionary where page indices are keys and page content are values.
Your objective is to accurately align the names of the financial statements and their starting page indices according to the content found at these page indices in the report.
The output format should be: [['Statement Name 1', 'Correct Page Index 1'], ['Statement Name 2', 'Correct Page Index 2'], ... ].`

const classifyInstruction = `You are trained to classify the statement name according to the below name.
1. profit_or_loss
2. financial_position
3. changes_in_equity
4. cash_flow
5. comprehensive_income
6. na
Only return either and only one: 'profit_or_loss', 'financial_position', 'changes_in_equity', 'cash_flow', 'comprehensive_incom', 'na' even none of them are matched.`

var classifyExamples = [][2]string{
	{"Consolidated Statement of Profit or Loss", "profit_or_loss"},
	{"Consolidated Statement of Comprehensive Income", "comprehensive_income"},
	{"Statement of Cash Flows", "cash_flow"},
	{"totaly wrong statement name", "na"},
}

func locateConversation(content string) []llm.Message {
	example, _ := json.Marshal(locateExampleAnswer)
	return llm.Conversation{}.
		System(locateInstruction).
		Example(locateExampleUser, string(example)).
		User(content)
}

func classifyConversation(name string) []llm.Message {
	conv := llm.Conversation{}.System(classifyInstruction)
	for _, ex := range classifyExamples {
		conv = conv.Example(ex[0], ex[1])
	}
	return conv.User(name)
}
