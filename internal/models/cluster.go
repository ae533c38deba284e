// QuakeMap - Real-Time Seismic Event Ingestion and Spatial Queries
// SPDX-License-Identifier: AGPL-3.0-or-later

package models

// ClusterCell is one lon/lat grid bucket produced by the grid clustering
// aggregation. CenterLon/CenterLat are the centroid of the member event
// coordinates, not the geometric center of the cell.
type ClusterCell struct {
	LonBin       int64   `json:"lon_bin"`
	LatBin       int64   `json:"lat_bin"`
	Count        int     `json:"count"`
	AvgMagnitude float64 `json:"avg_magnitude"`
	MinTime      string  `json:"min_time"`
	MaxTime      string  `json:"max_time"`
	CenterLon    float64 `json:"center_lon"`
	CenterLat    float64 `json:"center_lat"`
}
