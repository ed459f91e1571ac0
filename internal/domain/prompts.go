package domain

import "text/template"

//nolint:gochecknoglobals // parsed once at init
var anglePrompts = map[Angle]*template.Template{
	AngleExternalRiskSummary: template.Must(template.New(string(AngleExternalRiskSummary)).Parse(
		`Act as a due diligence analyst preparing background context for a potential M&A deal.
Provide a detailed summary of potential external risks that would affect the valuation or operations of {{.Company}}, including:
- Regulatory changes and compliance requirements
- Geopolitical risks affecting operations or markets
- Supply chain vulnerabilities and dependencies
- Market competition and competitive threats
- Financial health signals from public filings or analyst sentiment
- Recent lawsuits, investigations, or regulatory actions
- Technology disruption risks
- ESG concerns and reputational risks

Cite sources with URLs when available. Focus on material risks that could impact deal value or integration success.`)),

	AngleRiskLandscapeMatrix: template.Must(template.New(string(AngleRiskLandscapeMatrix)).Parse(
		`Generate a comprehensive 2x2 risk landscape matrix for {{.Company}}, categorizing external factors by:
- Likelihood (High/Low)
- Impact (High/Low)

Include industry-specific risks, macroeconomic conditions, geopolitical issues, regulatory changes,
technology disruptions, market dynamics and ESG factors.

For each quadrant, list 3-5 specific risks with:
1. Brief description of the risk
2. Why it belongs in this quadrant
3. Potential financial or operational impact
4. Relevant news headlines or events

Provide sources and citations when available.`)),

	AngleWatchFactors: template.Must(template.New(string(AngleWatchFactors)).Parse(
		`Based on extensive public source research, list the top 5-7 external developments an M&A analyst should monitor
that could influence the future performance and valuation of {{.Company}} in the next 12-18 months.

For each development:
1. Describe the specific development or trend
2. Explain why it matters for M&A valuation
3. Classify as risk or opportunity
4. Identify specific signals or triggers to watch
5. Estimate timeline for potential impact
6. Quantify potential impact if possible (revenue %, market share, etc.)
7. Provide relevant sources

Focus on actionable intelligence that would affect deal timing, structure, or valuation.`)),

	AngleRedFlagDetection: template.Must(template.New(string(AngleRedFlagDetection)).Parse(
		`You are an M&A red flag analyst conducting deep due diligence. Using all available public information, identify anything in the last 24 months
that could represent a material concern to potential acquirers of {{.Company}}.

Investigate and report on legal actions, regulatory investigations, executive turnover, financial restatements,
unusual revenue recognition, major customer losses, product recalls, data breaches, activist campaigns,
auditor changes, whistleblower complaints, supply chain disruptions, environmental violations and labor disputes.

For each red flag found:
- Provide specific dates and timeline
- Include direct sources and links
- Rate severity as Critical/High/Medium
- Estimate potential financial impact
- Note any ongoing or unresolved issues`)),

	AngleCompanyContext: template.Must(template.New(string(AngleCompanyContext)).Parse(
		`Position {{.Company}} comprehensively within its business ecosystem for M&A evaluation. Provide detailed analysis of:

1. Competitive Landscape: top competitors with market share data, moats, share trends, emerging threats
2. Geographic and Market Dependencies: revenue by geography, concentration, jurisdictional regulation
3. Industry Analysis: growth rates, headwinds and tailwinds, disruption threats, regulatory trends
4. External Dependencies: critical suppliers, platform, partnership and infrastructure dependencies
5. Stakeholder Sentiment: analyst ratings, institutional investor changes, employee sentiment
6. Customer Dynamics: concentration, churn indicators, renewal risks, pricing power
7. Regulatory Environment: oversight bodies, compliance costs, pending changes, historical issues

Include recent developments, data points, and forward-looking assessments with sources.`)),
}
