package grid

// richSeriesQuery lists series with the optional display fields.
const richSeriesQuery = `
  query BridgeDiscoverSeries($start: DateTime!, $end: DateTime!, $first: Int, $after: Cursor) {
    allSeries(
      filter: { startTimeScheduled: { gte: $start, lte: $end } }
      orderBy: StartTimeScheduled
      first: $first
      after: $after
    ) {
      pageInfo {
        hasNextPage
        endCursor
      }
      edges {
        node {
          id
          startTimeScheduled
          title {
            nameShortened
          }
          tournament {
            nameShortened
          }
          format {
            nameShortened
          }
          teams {
            baseInfo {
              name
            }
          }
        }
      }
    }
  }
`

// minimalSeriesQuery only asks for fields the schema has never rejected.
const minimalSeriesQuery = `
  query BridgeDiscoverSeriesMinimal($start: DateTime!, $end: DateTime!, $first: Int, $after: Cursor) {
    allSeries(
      filter: { startTimeScheduled: { gte: $start, lte: $end } }
      orderBy: StartTimeScheduled
      first: $first
      after: $after
    ) {
      pageInfo {
        hasNextPage
        endCursor
      }
      edges {
        node {
          id
          startTimeScheduled
        }
      }
    }
  }
`

// seriesStateQuery reads the per-map round scores of one series.
const seriesStateQuery = `
  query BridgeSeriesState($id: ID!) {
    series(id: $id) {
      games {
        segments {
          number
          team1Score
          team2Score
          isMapFinished
        }
      }
    }
  }
`
