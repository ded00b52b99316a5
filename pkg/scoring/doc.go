// Package scoring computes 0-100 traffic environment scores for regions
// from raw travel speed, transit coverage, and accident metrics.
//
// Each metric is min-max normalized over the dataset, accidents inverted
// so that safer regions score higher, and the three normalized values are
// combined into a weighted composite used for ranking and comparison.
package scoring
