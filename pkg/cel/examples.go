package cel

var ConditionExamples = map[string]string{
	"single_account":   `account == "123456789012"`,
	"region_allowlist": `region in ["us-east-1", "eu-west-1"]`,
	"release_tags":     `!tag.contains("-")`,
	"tag_prefix":       `tag.startsWith("1.")`,
	"team_repository":  `repository.startsWith("payments/")`,
	"first_delivery":   `retryCount == 0`,
	"combined":         `account == "123456789012" && region == "us-east-1" && !tag.endsWith("-rc")`,
}
