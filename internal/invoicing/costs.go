package invoicing

import "github.com/shopspring/decimal"

// WorkCost holds the aggregated figures for one work item at full precision.
type WorkCost struct {
	Labour   decimal.Decimal
	Material decimal.Decimal
	Total    decimal.Decimal
}

// LabourCost returns the override when present, else hours × rate.
func LabourCost(item WorkItem) decimal.Decimal {
	if item.LabourCostOverride.Valid {
		return item.LabourCostOverride.Decimal
	}
	return item.LabourHours.Mul(item.LabourRate)
}

// MaterialLineTotal is quantity × unit cost.
func MaterialLineTotal(line MaterialLine) decimal.Decimal {
	return line.UnitCost.Mul(decimal.NewFromInt(int64(line.Quantity)))
}

// MaterialCost returns the override when present, else the sum of the material lines.
func MaterialCost(item WorkItem) decimal.Decimal {
	if item.MaterialCostOverride.Valid {
		return item.MaterialCostOverride.Decimal
	}
	total := decimal.Zero
	for _, line := range item.Materials {
		total = total.Add(MaterialLineTotal(line))
	}
	return total
}

// AggregateWork computes labour, material and total cost of item. Overrides
// replace the computed value; they are never added to it.
func AggregateWork(item WorkItem) WorkCost {
	labour := LabourCost(item)
	material := MaterialCost(item)
	return WorkCost{Labour: labour, Material: material, Total: labour.Add(material)}
}
