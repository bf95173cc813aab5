package indexer

import "github.com/hyperjump/kotae/internal/models"

// SampleDocuments returns the built-in HR and policy corpus used by
// AddSampleDocuments and the reindex command.
func SampleDocuments() []*models.DocumentInput {
	return []*models.DocumentInput{
		{
			ID:    "vacation-policy",
			Title: "Vacation Policy",
			Content: `Vacation Policy

Employees receive 15 vacation days per year. Vacation days accrue monthly at a rate of 1.25 days per month, starting from the first day of employment.

Vacation requests must be submitted at least two weeks in advance through the HR portal and approved by your direct manager. Requests for more than five consecutive days require approval from the department head.

Up to 5 unused vacation days may be carried over into the next calendar year. Carried-over days must be used by March 31, after which they expire. Unused vacation days are not paid out except where required by law.`,
			Metadata: map[string]interface{}{"category": "hr", "source": "sample"},
		},
		{
			ID:    "expense-policy",
			Title: "Expense Reimbursement Policy",
			Content: `Expense Reimbursement Policy

To submit an expense report, log in to the finance portal, create a new report, and attach a scanned copy or photo of every receipt. Expense reports must be submitted within 30 days of the expense.

Reports under $500 are approved by your direct manager. Reports of $500 or more also require approval from the finance department. Approved expenses are reimbursed with the next payroll cycle.

Meals while travelling are reimbursed up to $50 per day. Alcohol, personal entertainment and traffic fines are not reimbursable.`,
			Metadata: map[string]interface{}{"category": "finance", "source": "sample"},
		},
		{
			ID:    "it-support",
			Title: "IT Support Guide",
			Content: `IT Support Guide

For IT issues, contact the IT help desk at helpdesk@company.com or call extension 4357 (HELP). The help desk is staffed Monday to Friday from 8 AM to 6 PM.

For urgent issues outside business hours, such as a system outage or a suspected security incident, call the on-call IT line at extension 4000.

Password resets can be done self-service through the account portal. New hardware and software requests must be filed as a ticket in the IT service portal and approved by your manager.`,
			Metadata: map[string]interface{}{"category": "it", "source": "sample"},
		},
		{
			ID:    "remote-work-policy",
			Title: "Remote Work Policy",
			Content: `Remote Work Policy

Employees may work remotely up to 3 days per week with manager approval. Core collaboration hours are 10 AM to 3 PM in the employee's local time zone, during which remote employees must be reachable.

Remote employees must use the company VPN when accessing internal systems. The company provides a one-time home office stipend of $300 for equipment such as monitors and chairs.

Fully remote arrangements require approval from HR and are reviewed every six months.`,
			Metadata: map[string]interface{}{"category": "hr", "source": "sample"},
		},
		{
			ID:    "benefits-overview",
			Title: "Employee Benefits Overview",
			Content: `Employee Benefits Overview

Full-time employees are eligible for health, dental and vision insurance starting on the first day of the month after their start date. The company covers 80 percent of the premium for employees and 50 percent for dependents.

The company matches 401(k) contributions up to 4 percent of salary. Employees receive 10 paid sick days per year and 12 paid company holidays.

Each employee has an annual professional development budget of $1,000 for courses, conferences and books. Requests are submitted through the HR portal.`,
			Metadata: map[string]interface{}{"category": "hr", "source": "sample"},
		},
	}
}
